package domain

import "time"

// RiskLevel bands the overall score for presentation.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevelForScore bands an overall score into a risk level.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskLevelCritical
	case score >= 50:
		return RiskLevelHigh
	case score >= 25:
		return RiskLevelMedium
	}

	return RiskLevelLow
}

// CategoryScore is the subscore for one risk category.
type CategoryScore struct {
	Category RiskCategory `json:"category"`
	// Score is the normalized 0-100 score for this category alone.
	Score float64 `json:"score"`
	// ClusterIDs lists the clusters that contributed to the category.
	ClusterIDs []string `json:"clusterIds,omitempty"`
}

// ScoreBreakdown carries the overall privacy threat score with its
// per-category decomposition. The breakdown is a pure function of the
// cluster set: identical clusters always yield an identical breakdown.
type ScoreBreakdown struct {
	// Overall is the 0-100 privacy threat score.
	Overall float64 `json:"overall"`
	// Level is the banded risk level derived from Overall.
	Level RiskLevel `json:"level"`
	// Categories holds one entry per risk category, always in the fixed
	// order identity, financial, contact.
	Categories []CategoryScore `json:"categories"`
}

// ScanReport is the immutable outcome of one completed scan.
type ScanReport struct {
	// IdentityToken the scan was performed against.
	IdentityToken IdentityToken `json:"identityToken"`
	// Clusters are the exposure clusters, ordered by descending severity
	// (ties by cluster id) for stable presentation.
	Clusters []ExposureCluster `json:"clusters"`
	// Score is the overall privacy threat score with breakdown.
	Score ScoreBreakdown `json:"score"`
	// SourceFailures lists sources that errored during discovery, so partial
	// results are never silently incomplete.
	SourceFailures []SourceFailure `json:"sourceFailures,omitempty"`
	// Summary is a human-readable digest of the findings.
	Summary string `json:"summary"`
	// Recommendations are remediation steps derived from the categories hit.
	Recommendations []string `json:"recommendations,omitempty"`
	// StartedAt and FinishedAt bound the scan run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Cluster returns the cluster with the given id, or nil.
func (r *ScanReport) Cluster(id string) *ExposureCluster {
	for i := range r.Clusters {
		if r.Clusters[i].ID == id {
			return &r.Clusters[i]
		}
	}

	return nil
}
