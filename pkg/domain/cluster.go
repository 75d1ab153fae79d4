package domain

// RiskCategory groups exposure clusters for the per-category score
// breakdown of a report.
type RiskCategory string

const (
	// RiskCategoryIdentity covers leaked credentials and breach records.
	RiskCategoryIdentity RiskCategory = "IDENTITY_EXPOSURE"
	// RiskCategoryFinancial covers data-broker listings that can be bought.
	RiskCategoryFinancial RiskCategory = "FINANCIAL_EXPOSURE"
	// RiskCategoryContact covers public accounts and contact details.
	RiskCategoryContact RiskCategory = "CONTACT_EXPOSURE"
)

// Category returns the risk category an exposure of this type counts
// towards.
func (t CandidateType) Category() RiskCategory {
	switch t {
	case CandidateTypeLeakedRecord:
		return RiskCategoryIdentity
	case CandidateTypeBrokerListing:
		return RiskCategoryFinancial
	case CandidateTypeAccount:
		return RiskCategoryContact
	}

	return RiskCategoryContact
}

// ExposureCluster is a set of normalized candidates judged to refer to the
// same real-world exposure, e.g. the same account re-discovered via two
// sources. Membership is fixed once the auditor has scored the cluster.
type ExposureCluster struct {
	// ID identifies the cluster within one scan. It is derived
	// deterministically from the members so that identical candidate sets
	// always produce identical ids.
	ID string `json:"id"`
	// Type is the shared candidate type of all members.
	Type CandidateType `json:"type"`
	// Members holds at least one normalized candidate.
	Members []NormalizedCandidate `json:"members"`
	// AggregateConfidence is the mean of the members' confidences.
	AggregateConfidence float64 `json:"aggregateConfidence"`
	// Severity is the confidence-weighted severity assigned by the auditor.
	Severity float64 `json:"severity"`
}

// PrimaryHandle returns the handle of the highest-confidence member; ties
// break towards the lexicographically smaller source name so the choice is
// deterministic.
func (c ExposureCluster) PrimaryHandle() string {
	if len(c.Members) == 0 {
		return ""
	}
	best := c.Members[0]
	for _, m := range c.Members[1:] {
		if m.Confidence > best.Confidence ||
			(m.Confidence == best.Confidence && m.Source < best.Source) {
			best = m
		}
	}

	return best.Handle
}

// Sources returns the distinct member source names in first-seen order.
func (c ExposureCluster) Sources() []string {
	seen := make(map[string]struct{}, len(c.Members))
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if _, ok := seen[m.Source]; ok {
			continue
		}
		seen[m.Source] = struct{}{}
		out = append(out, m.Source)
	}

	return out
}
