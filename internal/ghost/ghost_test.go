package ghost_test

import (
	"context"
	"testing"
	"time"

	"ghostscan/internal/ghost"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/recipient"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func testOptions() ghost.Options {
	return ghost.Options{
		SeverityThreshold: 5.0,
		RequesterName:     "Privacy Requests Desk",
		RequesterEmail:    "privacy@ghostscan.local",
	}
}

func testReport(t *testing.T, clusters ...domain.ExposureCluster) *domain.ScanReport {
	t.Helper()
	token, err := domain.NewIdentityToken("user@example.com")
	require.NoError(t, err)

	return &domain.ScanReport{IdentityToken: token, Clusters: clusters}
}

func member(source, handle string) domain.NormalizedCandidate {
	return domain.NormalizedCandidate{
		Source:      source,
		Type:        domain.CandidateTypeAccount,
		Handle:      handle,
		Confidence:  0.8,
		RetrievedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGenerateOneNoticePerClusterRecipient(t *testing.T) {
	t.Parallel()

	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeAccount,
		Members:  []domain.NormalizedCandidate{member("twitter", "user123"), member("github", "user123")},
		Severity: 6.0,
	}

	g := ghost.New(recipient.NewRegistry(), testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, cluster))
	require.Len(t, notices, 2)

	byRecipient := map[string]domain.TakedownNotice{}
	for _, n := range notices {
		assert.Equal(t, "cluster-1", n.ClusterID)
		assert.Equal(t, domain.NoticeStatusDrafted, n.Status)
		byRecipient[n.Recipient] = n
	}
	require.Contains(t, byRecipient, "privacy@x.com")
	require.Contains(t, byRecipient, "privacy@github.com")
}

func TestGenerateSkipsBelowThreshold(t *testing.T) {
	t.Parallel()

	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeAccount,
		Members:  []domain.NormalizedCandidate{member("twitter", "user123")},
		Severity: 2.0,
	}

	g := ghost.New(recipient.NewRegistry(), testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, cluster))
	assert.Empty(t, notices)
}

func TestGenerateSkipsUnresolvableRecipients(t *testing.T) {
	t.Parallel()

	// hibp has no takedown recipient; the twitter member must still yield one
	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeLeakedRecord,
		Members:  []domain.NormalizedCandidate{member("hibp", "user@example.com"), member("twitter", "user123")},
		Severity: 9.0,
	}

	g := ghost.New(recipient.NewRegistry(), testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, cluster))
	require.Len(t, notices, 1)
	assert.Equal(t, "twitter", notices[0].Source)
}

func TestGenerateLegalBasisFollowsJurisdiction(t *testing.T) {
	t.Parallel()

	registry := recipient.NewRegistry()
	registry.Register("elsewhere", recipient.Recipient{
		DisplayName:  "Elsewhere",
		Contact:      "privacy@elsewhere.example",
		Jurisdiction: domain.JurisdictionOther,
	})

	clusters := []domain.ExposureCluster{
		{
			ID:       "cluster-eu",
			Type:     domain.CandidateTypeBrokerListing,
			Members:  []domain.NormalizedCandidate{member("brokerdir", "acme-people-search")},
			Severity: 7.0,
		},
		{
			ID:       "cluster-us",
			Type:     domain.CandidateTypeAccount,
			Members:  []domain.NormalizedCandidate{member("twitter", "user123")},
			Severity: 6.0,
		},
		{
			ID:       "cluster-other",
			Type:     domain.CandidateTypeAccount,
			Members:  []domain.NormalizedCandidate{member("elsewhere", "user123")},
			Severity: 6.0,
		},
	}

	g := ghost.New(registry, testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, clusters...))
	require.Len(t, notices, 3)

	byCluster := map[string]domain.TakedownNotice{}
	for _, n := range notices {
		byCluster[n.ClusterID] = n
	}
	assert.Equal(t, domain.LegalBasisGDPR, byCluster["cluster-eu"].LegalBasis)
	assert.Contains(t, byCluster["cluster-eu"].Subject, "GDPR Article 17")
	assert.Contains(t, byCluster["cluster-eu"].Body, "Article 17")
	assert.Equal(t, domain.LegalBasisCCPA, byCluster["cluster-us"].LegalBasis)
	assert.Contains(t, byCluster["cluster-us"].Subject, "1798.105")
	assert.Equal(t, domain.LegalBasisGeneric, byCluster["cluster-other"].LegalBasis)
	assert.Contains(t, byCluster["cluster-other"].Subject, "Removal Request")
}

func TestGenerateRenderedBodyMentionsTokenAndEvidence(t *testing.T) {
	t.Parallel()

	m := member("twitter", "https://x.com/user123")
	m.Evidence = map[string]string{"profile": "public"}
	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeAccount,
		Members:  []domain.NormalizedCandidate{m},
		Severity: 6.0,
	}

	g := ghost.New(recipient.NewRegistry(), testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, cluster))
	require.Len(t, notices, 1)

	body := notices[0].Body
	assert.Contains(t, body, "user@example.com")
	assert.Contains(t, body, "https://x.com/user123")
	assert.Contains(t, body, "profile: public")
	assert.Contains(t, body, "privacy@ghostscan.local")
	assert.NotContains(t, body, "{{")
}

func TestGenerateDedupesSharedRecipient(t *testing.T) {
	t.Parallel()

	registry := recipient.NewRegistry()
	shared := recipient.Recipient{
		DisplayName:  "Conglomerate",
		Contact:      "privacy@conglomerate.example",
		Jurisdiction: domain.JurisdictionEU,
	}
	registry.Register("site-a", shared)
	registry.Register("site-b", shared)

	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeAccount,
		Members:  []domain.NormalizedCandidate{member("site-a", "user123"), member("site-b", "user123")},
		Severity: 6.0,
	}

	g := ghost.New(registry, testOptions())
	notices := g.Generate(context.Background(), domain.ScanID(uuid.New()), testReport(t, cluster))
	require.Len(t, notices, 1)
	assert.Equal(t, "privacy@conglomerate.example", notices[0].Recipient)
}

func TestGenerateIdempotentAcrossInvocations(t *testing.T) {
	t.Parallel()

	cluster := domain.ExposureCluster{
		ID:       "cluster-1",
		Type:     domain.CandidateTypeAccount,
		Members:  []domain.NormalizedCandidate{member("twitter", "user123")},
		Severity: 6.0,
	}

	g := ghost.New(recipient.NewRegistry(), testOptions())
	scanID := domain.ScanID(uuid.New())
	first := g.Generate(context.Background(), scanID, testReport(t, cluster))
	second := g.Generate(context.Background(), scanID, testReport(t, cluster))

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ClusterID, second[0].ClusterID)
	assert.Equal(t, first[0].Recipient, second[0].Recipient)
	assert.Equal(t, first[0].Body, second[0].Body)
}
