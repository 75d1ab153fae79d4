package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoticeID uniquely identifies a takedown notice.
type NoticeID uuid.UUID

func (id NoticeID) String() string { return uuid.UUID(id).String() }

// Jurisdiction tags the legal regime of a notice recipient.
type Jurisdiction string

const (
	JurisdictionEU           Jurisdiction = "EU"
	JurisdictionUSCalifornia Jurisdiction = "US_CA"
	JurisdictionOther        Jurisdiction = "OTHER"
)

// LegalBasis names the regulation a takedown notice is grounded on.
type LegalBasis string

const (
	// LegalBasisGDPR is GDPR Article 17, "Right to Erasure".
	LegalBasisGDPR LegalBasis = "GDPR"
	// LegalBasisCCPA is CCPA §1798.105 deletion rights.
	LegalBasisCCPA LegalBasis = "CCPA"
	// LegalBasisGeneric is a generic right-to-erasure request for
	// recipients outside the two regimes above.
	LegalBasisGeneric LegalBasis = "GENERIC"
)

// NoticeStatus is the delivery lifecycle state of a notice. The pipeline
// only ever creates notices in drafted state; all later transitions are
// reported back by the external delivery collaborator.
type NoticeStatus string

const (
	NoticeStatusDrafted NoticeStatus = "DRAFTED"
	NoticeStatusQueued  NoticeStatus = "QUEUED"
	NoticeStatusSent    NoticeStatus = "SENT"
	NoticeStatusFailed  NoticeStatus = "FAILED"
)

// CanTransitionTo reports whether moving from s to next is a legal delivery
// transition. Drafted notices are queued by the delivery collaborator,
// queued ones end up sent or failed, and failed ones may be re-queued.
func (s NoticeStatus) CanTransitionTo(next NoticeStatus) bool {
	switch s {
	case NoticeStatusDrafted:
		return next == NoticeStatusQueued
	case NoticeStatusQueued:
		return next == NoticeStatusSent || next == NoticeStatusFailed
	case NoticeStatusFailed:
		return next == NoticeStatusQueued
	case NoticeStatusSent:
		return false
	}

	return false
}

// TakedownNotice is a rendered takedown request addressed to the holder of
// one exposure cluster. Status (and retry bookkeeping) is the only state
// mutated after creation.
type TakedownNotice struct {
	ID NoticeID `json:"id"`
	// ScanID ties the notice to the scan whose report contains ClusterID.
	ScanID ScanID `json:"scanId"`
	// ClusterID references the exposure cluster this notice asks to remove.
	ClusterID string `json:"clusterId"`
	// Source is the source name whose recipient the notice is addressed to.
	Source string `json:"source"`
	// Recipient is the resolved privacy contact of the data holder.
	Recipient string `json:"recipient"`
	// Jurisdiction of the recipient, driving the template choice.
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	// LegalBasis the document cites.
	LegalBasis LegalBasis `json:"legalBasis"`
	// Subject and Body are the rendered document.
	Subject string `json:"subject"`
	Body    string `json:"body"`

	Status NoticeStatus `json:"status"`
	// RetryCount counts delivery retries reported by the collaborator.
	RetryCount uint `json:"retryCount"`
	// FailureReason holds the collaborator-reported reason when Status is
	// failed.
	FailureReason string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
