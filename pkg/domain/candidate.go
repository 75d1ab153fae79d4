package domain

import (
	"encoding/json"
	"time"
)

// CandidateType classifies what kind of exposure a candidate points at.
type CandidateType string

const (
	// CandidateTypeAccount is a public account or profile on a platform.
	CandidateTypeAccount CandidateType = "ACCOUNT"
	// CandidateTypeBrokerListing is a listing held by a data broker.
	CandidateTypeBrokerListing CandidateType = "BROKER_LISTING"
	// CandidateTypeLeakedRecord is a record exposed in a known data breach.
	CandidateTypeLeakedRecord CandidateType = "LEAKED_RECORD"
)

// MatchedField names an identity attribute that a candidate matched on.
type MatchedField string

const (
	MatchedFieldEmail    MatchedField = "email"
	MatchedFieldUsername MatchedField = "username"
	MatchedFieldPhone    MatchedField = "phone"
	MatchedFieldDomain   MatchedField = "domain"
)

// RawCandidate is one unparsed hit returned by a single source adapter.
// It is owned by the scout until normalization and discarded afterwards;
// only the normalized form flows further down the pipeline.
type RawCandidate struct {
	// Source is the adapter-assigned source name, e.g. "hibp".
	Source string `json:"source"`
	// Payload carries the source-native fields untouched.
	Payload json.RawMessage `json:"payload"`
	// RetrievedAt is when the adapter fetched this hit.
	RetrievedAt time.Time `json:"retrievedAt"`
	// Confidence reflects match strength in [0,1]: an exact email match is
	// 1.0, a fuzzy username match considerably less.
	Confidence float64 `json:"confidence"`
}

// NormalizedCandidate is a RawCandidate mapped into the common schema.
// Immutable once created.
type NormalizedCandidate struct {
	// Source is the name of the adapter that produced the candidate.
	Source string `json:"source"`
	// Type classifies the exposure.
	Type CandidateType `json:"type"`
	// Handle is the display handle or URL identifying the hit on the source.
	Handle string `json:"handle"`
	// MatchedFields lists which identity attributes matched.
	MatchedFields []MatchedField `json:"matchedFields"`
	// Confidence is the adapter-assigned match strength in [0,1].
	Confidence float64 `json:"confidence"`
	// RetrievedAt is carried over from the raw candidate.
	RetrievedAt time.Time `json:"retrievedAt"`
	// Evidence holds a small source-specific summary used in the report and
	// in rendered takedown notices (e.g. breach names, profile title).
	Evidence map[string]string `json:"evidence,omitempty"`
}

// HasMatchedField reports whether f is among the candidate's matched fields.
func (c NormalizedCandidate) HasMatchedField(f MatchedField) bool {
	for _, mf := range c.MatchedFields {
		if mf == f {
			return true
		}
	}

	return false
}

// SourceFailure records a source that errored or timed out during discovery.
// Partial results are a first-class outcome; failures are reported alongside
// them, never raised.
type SourceFailure struct {
	// Source is the name of the failing adapter.
	Source string `json:"source"`
	// Reason describes the failure kind (unavailable, timeout, rate limited).
	Reason string `json:"reason"`
}
