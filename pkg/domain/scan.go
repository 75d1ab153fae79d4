package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScanID uniquely identifies a scan. It wraps uuid.UUID to provide type
// safety at the domain layer.
type ScanID uuid.UUID

func (id ScanID) String() string { return uuid.UUID(id).String() }

// ScanStatus is the lifecycle state of a scan. The pipeline moves strictly
// forward through the active states; failed and cancelled are terminal and
// reachable from any non-terminal state.
type ScanStatus string

const (
	// ScanStatusPending indicates the scan is enqueued but not started.
	ScanStatusPending ScanStatus = "PENDING"
	// ScanStatusDiscovering indicates source adapters are being probed.
	ScanStatusDiscovering ScanStatus = "DISCOVERING"
	// ScanStatusAuditing indicates clustering and scoring are running.
	ScanStatusAuditing ScanStatus = "AUDITING"
	// ScanStatusGeneratingNotices indicates takedown notices are rendered.
	ScanStatusGeneratingNotices ScanStatus = "GENERATING_NOTICES"
	// ScanStatusCompleted indicates the report and notices are final.
	ScanStatusCompleted ScanStatus = "COMPLETED"
	// ScanStatusFailed indicates a fatal error; see LastError.
	ScanStatusFailed ScanStatus = "FAILED"
	// ScanStatusCancelled indicates external cancellation; no report exists.
	ScanStatusCancelled ScanStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed || s == ScanStatusCancelled
}

// nextActive is the strict forward order of the active pipeline states.
var nextActive = map[ScanStatus]ScanStatus{ //nolint: gochecknoglobals
	ScanStatusPending:           ScanStatusDiscovering,
	ScanStatusDiscovering:       ScanStatusAuditing,
	ScanStatusAuditing:          ScanStatusGeneratingNotices,
	ScanStatusGeneratingNotices: ScanStatusCompleted,
}

// CanTransitionTo reports whether moving from s to next is legal: one step
// forward in the active sequence, or failed/cancelled from any non-terminal
// state. No state is ever revisited.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == ScanStatusFailed || next == ScanStatusCancelled {
		return true
	}

	return nextActive[s] == next
}

// Scan is a single scan request with its lifecycle state. The report is
// only populated once Status is completed, and is immutable from then on.
type Scan struct {
	// ID is the unique identifier of the scan.
	ID ScanID `json:"id"`
	// IdentityToken the scan runs against.
	IdentityToken IdentityToken `json:"identityToken"`

	// Status is the current lifecycle state.
	Status ScanStatus `json:"status"`
	// Progress is a 0-100 indication of how far discovery has come.
	Progress int `json:"progress"`
	// Report holds the finished scan report once completed.
	Report ScanReport `json:"report"`

	// LastError stores the most recent fatal error message, if any.
	LastError string `json:"-"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CompletedAt time.Time `json:"completedAt"`
	DeletedAt   time.Time `json:"-"`
}
