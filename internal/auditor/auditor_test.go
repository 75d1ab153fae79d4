package auditor_test

import (
	"math/rand"
	"testing"
	"time"

	"ghostscan/internal/auditor"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(source, handle string, t domain.CandidateType,
	confidence float64, fields ...domain.MatchedField) domain.NormalizedCandidate {
	if len(fields) == 0 {
		fields = []domain.MatchedField{domain.MatchedFieldUsername}
	}

	return domain.NormalizedCandidate{
		Source:        source,
		Type:          t,
		Handle:        handle,
		MatchedFields: fields,
		Confidence:    confidence,
		RetrievedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func mustToken(t *testing.T) domain.IdentityToken {
	t.Helper()
	token, err := domain.NewIdentityToken("user@example.com")
	require.NoError(t, err)

	return token
}

func TestAuditEmptyInput(t *testing.T) {
	t.Parallel()

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.Score.Overall)
	assert.Equal(t, domain.RiskLevelLow, report.Score.Level)
	assert.Equal(t, "No exposures found.", report.Summary)
	assert.Empty(t, report.Recommendations)
	require.Len(t, report.Score.Categories, 3)
	for _, category := range report.Score.Categories {
		assert.Zero(t, category.Score)
	}
}

func TestAuditRequiredCategoriesUnmet(t *testing.T) {
	t.Parallel()

	a := auditor.New(auditor.Options{
		RequiredCategories: []domain.RiskCategory{domain.RiskCategoryIdentity},
	})

	_, err := a.Audit(mustToken(t), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrRequiredCategoriesUnmet)

	// A single candidate is enough to satisfy the policy.
	report, err := a.Audit(mustToken(t), []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.9),
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Clusters)
}

func TestAuditMergesIdenticalHandlesAcrossSources(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.9),
		candidate("github", "user123", domain.CandidateTypeAccount, 0.6),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	require.Len(t, report.Clusters, 1)
	cluster := report.Clusters[0]
	assert.Len(t, cluster.Members, 2)
	assert.InDelta(t, 0.75, cluster.AggregateConfidence, 1e-9)
	assert.Equal(t, "user123", cluster.PrimaryHandle())
	assert.ElementsMatch(t, []string{"twitter", "github"}, cluster.Sources())
}

func TestAuditKeepsDifferentTypesApart(t *testing.T) {
	t.Parallel()

	// same handle but one is an account and one a broker listing
	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.9),
		candidate("brokerdir", "user123", domain.CandidateTypeBrokerListing, 0.9),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 2)
}

func TestAuditLinksSimilarHandlesWithSharedField(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user1234", domain.CandidateTypeAccount, 0.8,
			domain.MatchedFieldUsername),
		candidate("instagram", "user123", domain.CandidateTypeAccount, 0.7,
			domain.MatchedFieldUsername),
	}

	report, err := auditor.New(auditor.Options{SimilarityThreshold: 0.85}).
		Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 1)
}

func TestAuditMinSharedFieldsTightensLinking(t *testing.T) {
	t.Parallel()

	// similar but not identical handles, sharing only the username field
	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user1234", domain.CandidateTypeAccount, 0.8,
			domain.MatchedFieldUsername),
		candidate("instagram", "user123", domain.CandidateTypeAccount, 0.7,
			domain.MatchedFieldUsername),
	}

	report, err := auditor.New(auditor.Options{MinSharedFields: 2}).
		Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 2)

	// two shared fields satisfy the stricter rule
	candidates = []domain.NormalizedCandidate{
		candidate("twitter", "user1234", domain.CandidateTypeAccount, 0.8,
			domain.MatchedFieldUsername, domain.MatchedFieldEmail),
		candidate("instagram", "user123", domain.CandidateTypeAccount, 0.7,
			domain.MatchedFieldUsername, domain.MatchedFieldEmail),
	}

	report, err = auditor.New(auditor.Options{MinSharedFields: 2}).
		Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 1)
}

func TestAuditDoesNotLinkDissimilarHandles(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.8),
		candidate("instagram", "totally-other", domain.CandidateTypeAccount, 0.7),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 2)
}

func TestAuditMatchesHandlesInsideProfileURLs(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "https://x.com/User123", domain.CandidateTypeAccount, 0.8),
		candidate("github", "https://github.com/user123", domain.CandidateTypeAccount, 0.7),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Len(t, report.Clusters, 1)
}

func TestAuditDeterministicAcrossInputOrder(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.9),
		candidate("github", "user123", domain.CandidateTypeAccount, 0.6),
		candidate("hibp", "https://haveibeenpwned.com/account/user@example.com",
			domain.CandidateTypeLeakedRecord, 1.0, domain.MatchedFieldEmail),
		candidate("brokerdir", "acme-people-search", domain.CandidateTypeBrokerListing, 0.6,
			domain.MatchedFieldEmail),
		candidate("gravatar", "https://gravatar.com/user123", domain.CandidateTypeAccount, 0.7),
	}

	a := auditor.New(auditor.Options{})
	baseline, err := a.Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for range 10 {
		shuffled := make([]domain.NormalizedCandidate, len(candidates))
		copy(shuffled, candidates)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		report, err := a.Audit(mustToken(t), shuffled, nil)
		require.NoError(t, err)
		require.Len(t, report.Clusters, len(baseline.Clusters))
		for i := range report.Clusters {
			assert.Equal(t, baseline.Clusters[i].ID, report.Clusters[i].ID)
			assert.Equal(t, baseline.Clusters[i].Severity, report.Clusters[i].Severity)
		}
		assert.Equal(t, baseline.Score, report.Score)
	}
}

func TestAuditClustersOrderedBySeverity(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.5),
		candidate("hibp", "user@example.com", domain.CandidateTypeLeakedRecord, 1.0,
			domain.MatchedFieldEmail),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	require.Len(t, report.Clusters, 2)
	assert.Equal(t, domain.CandidateTypeLeakedRecord, report.Clusters[0].Type)
	assert.Greater(t, report.Clusters[0].Severity, report.Clusters[1].Severity)
}

func TestAuditScoreMonotoneInFindings(t *testing.T) {
	t.Parallel()

	a := auditor.New(auditor.Options{})
	token := mustToken(t)

	few := []domain.NormalizedCandidate{
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.8),
	}
	more := append([]domain.NormalizedCandidate{
		candidate("hibp", "user@example.com", domain.CandidateTypeLeakedRecord, 1.0,
			domain.MatchedFieldEmail),
		candidate("brokerdir", "acme-people-search", domain.CandidateTypeBrokerListing, 0.9,
			domain.MatchedFieldEmail),
	}, few...)

	reportFew, err := a.Audit(token, few, nil)
	require.NoError(t, err)
	reportMore, err := a.Audit(token, more, nil)
	require.NoError(t, err)
	assert.Greater(t, reportMore.Score.Overall, reportFew.Score.Overall)
	assert.LessOrEqual(t, reportMore.Score.Overall, 100.0)
}

func TestAuditScoreCappedAt100(t *testing.T) {
	t.Parallel()

	candidates := make([]domain.NormalizedCandidate, 0, 40)
	for i := range 40 {
		candidates = append(candidates,
			candidate("hibp", string(rune('a'+i%26))+"-breach-"+string(rune('a'+i/26)),
				domain.CandidateTypeLeakedRecord, 1.0, domain.MatchedFieldEmail))
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.Score.Overall)
	assert.Equal(t, domain.RiskLevelCritical, report.Score.Level)
}

func TestAuditCategoryBreakdown(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("hibp", "user@example.com", domain.CandidateTypeLeakedRecord, 1.0,
			domain.MatchedFieldEmail),
		candidate("twitter", "user123", domain.CandidateTypeAccount, 0.8),
	}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, nil)
	require.NoError(t, err)
	require.Len(t, report.Score.Categories, 3)

	byCategory := map[domain.RiskCategory]domain.CategoryScore{}
	for _, category := range report.Score.Categories {
		byCategory[category.Category] = category
	}
	assert.Positive(t, byCategory[domain.RiskCategoryIdentity].Score)
	assert.Positive(t, byCategory[domain.RiskCategoryContact].Score)
	assert.Zero(t, byCategory[domain.RiskCategoryFinancial].Score)
	assert.Len(t, byCategory[domain.RiskCategoryIdentity].ClusterIDs, 1)
}

func TestAuditSummaryAndRecommendations(t *testing.T) {
	t.Parallel()

	candidates := []domain.NormalizedCandidate{
		candidate("hibp", "user@example.com", domain.CandidateTypeLeakedRecord, 1.0,
			domain.MatchedFieldEmail),
	}
	failures := []domain.SourceFailure{{Source: "brokerdir", Reason: "timeout"}}

	report, err := auditor.New(auditor.Options{}).Audit(mustToken(t), candidates, failures)
	require.NoError(t, err)
	assert.Contains(t, report.Summary, "1 exposure cluster(s)")
	assert.Contains(t, report.Summary, "could not be checked")
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "Rotate passwords")
	assert.Equal(t, failures, report.SourceFailures)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, auditor.Similarity("user123", "user123"))
	assert.Equal(t, 1.0, auditor.Similarity("", ""))
	assert.Zero(t, auditor.Similarity("abc", "xyz"))
	assert.InDelta(t, 0.875, auditor.Similarity("user1234", "user123"), 1e-9)
	assert.Less(t, auditor.Similarity("user123", "admin42"), 0.5)
}
