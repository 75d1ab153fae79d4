// Package auditor turns the flat candidate list produced by discovery into
// exposure clusters and a 0-100 privacy threat score. Auditing is a pure
// function of its inputs: the same candidates always yield the same
// clusters, ids, score and recommendations, regardless of discovery timing.
package auditor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/google/uuid"
)

// clusterNamespace seeds deterministic cluster ids. Changing it changes
// every cluster id, so it is fixed for the lifetime of the stored reports.
var clusterNamespace = uuid.MustParse("9f2d1c55-7a43-4c0e-9b1f-3d8a2b6c4e10")

// scoreScale converts accumulated cluster severity into score points.
const scoreScale = 3.0

// Weights are the per-type base severity weights. A leaked record is worth
// more than a broker listing, which is worth more than a mere account.
type Weights struct {
	Account       float64
	BrokerListing float64
	LeakedRecord  float64
}

// DefaultWeights returns the standard severity weights.
func DefaultWeights() Weights {
	return Weights{
		Account:       4.0,
		BrokerListing: 7.0,
		LeakedRecord:  9.5,
	}
}

func (w Weights) forType(t domain.CandidateType) float64 {
	switch t {
	case domain.CandidateTypeLeakedRecord:
		return w.LeakedRecord
	case domain.CandidateTypeBrokerListing:
		return w.BrokerListing
	case domain.CandidateTypeAccount:
		return w.Account
	}

	return w.Account
}

// Options configure clustering and scoring.
type Options struct {
	// SimilarityThreshold is the minimum normalized handle similarity, in
	// [0, 1], for linking candidates whose handles are not identical.
	SimilarityThreshold float64
	// MinSharedFields is how many matched identity fields two candidates
	// must share before handle similarity is even considered. Defaults to 1.
	MinSharedFields int
	// Weights are the per-type base severity weights.
	Weights Weights
	// RequiredCategories makes an empty discovery result a failure instead
	// of a clean zero-score report. Empty means no coverage requirement.
	RequiredCategories []domain.RiskCategory
}

// Auditor clusters candidates and scores the resulting exposure.
type Auditor struct {
	options Options
}

// New creates an Auditor. Zero-valued options fall back to the defaults.
func New(options Options) *Auditor {
	if options.SimilarityThreshold <= 0 {
		options.SimilarityThreshold = 0.85
	}
	if options.MinSharedFields <= 0 {
		options.MinSharedFields = 1
	}
	if options.Weights == (Weights{}) {
		options.Weights = DefaultWeights()
	}

	return &Auditor{options: options}
}

// Audit builds the scan report body for one identity token. The caller owns
// the report timestamps. An empty candidate set is a valid zero-score
// outcome unless required categories are configured.
func (a *Auditor) Audit(token domain.IdentityToken,
	candidates []domain.NormalizedCandidate,
	failures []domain.SourceFailure) (domain.ScanReport, error) {
	if len(candidates) == 0 && len(a.options.RequiredCategories) > 0 {
		return domain.ScanReport{}, serrors.With(serrors.ErrRequiredCategoriesUnmet,
			"no candidates discovered, but the audit policy requires %d categor(ies)",
			len(a.options.RequiredCategories))
	}

	clusters := a.cluster(candidates)
	breakdown := a.score(clusters)

	report := domain.ScanReport{
		IdentityToken:   token,
		Clusters:        clusters,
		Score:           breakdown,
		SourceFailures:  failures,
		Summary:         summarize(clusters, breakdown, failures),
		Recommendations: recommend(clusters),
	}

	return report, nil
}

// cluster partitions candidates with union-find. Two candidates are linked
// when they have the same type and either an identical handle or a handle
// similarity at or above the threshold together with a shared matched
// field. Candidates are sorted up front so the partition never depends on
// discovery order.
func (a *Auditor) cluster(candidates []domain.NormalizedCandidate) []domain.ExposureCluster {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]domain.NormalizedCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		if sorted[i].Handle != sorted[j].Handle {
			return sorted[i].Handle < sorted[j].Handle
		}

		return sorted[i].Confidence > sorted[j].Confidence
	})

	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}

		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	keys := make([]string, len(sorted))
	for i, c := range sorted {
		keys[i] = handleKey(c.Handle)
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].Type != sorted[j].Type {
				continue
			}
			if a.linked(sorted[i], sorted[j], keys[i], keys[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]domain.NormalizedCandidate)
	roots := make([]int, 0)
	for i := range sorted {
		root := find(i)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], sorted[i])
	}

	clusters := make([]domain.ExposureCluster, 0, len(roots))
	for _, root := range roots {
		clusters = append(clusters, a.buildCluster(groups[root]))
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Severity != clusters[j].Severity {
			return clusters[i].Severity > clusters[j].Severity
		}

		return clusters[i].ID < clusters[j].ID
	})

	return clusters
}

func (a *Auditor) linked(x, y domain.NormalizedCandidate, keyX, keyY string) bool {
	if keyX == keyY {
		return true
	}
	if sharedMatchedFields(x, y) < a.options.MinSharedFields {
		return false
	}

	return Similarity(keyX, keyY) >= a.options.SimilarityThreshold
}

func sharedMatchedFields(x, y domain.NormalizedCandidate) int {
	shared := 0
	for _, field := range x.MatchedFields {
		if y.HasMatchedField(field) {
			shared++
		}
	}

	return shared
}

// handleKey normalizes a handle for comparison: lowercased, and reduced to
// the last path segment when the handle is a URL, so that profile URLs from
// different sources can match on the account name.
func handleKey(handle string) string {
	key := strings.ToLower(strings.TrimSpace(handle))
	if !strings.Contains(key, "://") {
		return key
	}
	key = strings.TrimRight(key, "/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}

	return key
}

// buildCluster assembles one cluster from its members. Severity is the
// type's base weight scaled by the mean confidence and by a logarithmic
// corroboration bonus, so more members can only raise the severity.
func (a *Auditor) buildCluster(members []domain.NormalizedCandidate) domain.ExposureCluster {
	var sum float64
	memberKeys := make([]string, 0, len(members))
	for _, m := range members {
		sum += m.Confidence
		memberKeys = append(memberKeys, m.Source+"|"+m.Handle)
	}
	mean := sum / float64(len(members))
	sort.Strings(memberKeys)

	severity := a.options.Weights.forType(members[0].Type) *
		mean * (1 + math.Log(float64(len(members))))

	return domain.ExposureCluster{
		ID:                  uuid.NewSHA1(clusterNamespace, []byte(strings.Join(memberKeys, "\n"))).String(),
		Type:                members[0].Type,
		Members:             members,
		AggregateConfidence: mean,
		Severity:            severity,
	}
}

// score folds cluster severities into per-category subscores and the
// overall score, each capped at 100. Categories always appear in the fixed
// identity, financial, contact order.
func (a *Auditor) score(clusters []domain.ExposureCluster) domain.ScoreBreakdown {
	type categoryAcc struct {
		raw float64
		ids []string
	}
	accs := map[domain.RiskCategory]*categoryAcc{}
	var totalRaw float64
	for _, c := range clusters {
		category := c.Type.Category()
		if accs[category] == nil {
			accs[category] = &categoryAcc{}
		}
		accs[category].raw += c.Severity
		accs[category].ids = append(accs[category].ids, c.ID)
		totalRaw += c.Severity
	}

	order := []domain.RiskCategory{
		domain.RiskCategoryIdentity,
		domain.RiskCategoryFinancial,
		domain.RiskCategoryContact,
	}
	categories := make([]domain.CategoryScore, 0, len(order))
	for _, category := range order {
		score := domain.CategoryScore{Category: category}
		if acc := accs[category]; acc != nil {
			score.Score = cap100(acc.raw * scoreScale)
			score.ClusterIDs = acc.ids
		}
		categories = append(categories, score)
	}

	overall := cap100(totalRaw * scoreScale)

	return domain.ScoreBreakdown{
		Overall:    overall,
		Level:      domain.RiskLevelForScore(overall),
		Categories: categories,
	}
}

func cap100(v float64) float64 {
	return math.Min(100, math.Round(v*10)/10)
}

func summarize(clusters []domain.ExposureCluster,
	breakdown domain.ScoreBreakdown,
	failures []domain.SourceFailure) string {
	if len(clusters) == 0 {
		if len(failures) > 0 {
			return fmt.Sprintf("No exposures found, but %d source(s) could not be checked.", len(failures))
		}

		return "No exposures found."
	}

	sources := map[string]struct{}{}
	for _, c := range clusters {
		for _, s := range c.Sources() {
			sources[s] = struct{}{}
		}
	}

	summary := fmt.Sprintf("Found %d exposure cluster(s) across %d source(s); overall risk is %s (%.1f/100).",
		len(clusters), len(sources), breakdown.Level, breakdown.Overall)
	if len(failures) > 0 {
		summary += fmt.Sprintf(" %d source(s) could not be checked, so the real exposure may be higher.", len(failures))
	}

	return summary
}

func recommend(clusters []domain.ExposureCluster) []string {
	hit := map[domain.RiskCategory]bool{}
	for _, c := range clusters {
		hit[c.Type.Category()] = true
	}

	var out []string
	if hit[domain.RiskCategoryIdentity] {
		out = append(out,
			"Rotate passwords for every account tied to this address and enable two-factor authentication.")
	}
	if hit[domain.RiskCategoryFinancial] {
		out = append(out,
			"Submit opt-out requests to the data brokers listing this identity.")
	}
	if hit[domain.RiskCategoryContact] {
		out = append(out,
			"Review the discovered public profiles and tighten their privacy settings or remove them.")
	}

	return out
}
