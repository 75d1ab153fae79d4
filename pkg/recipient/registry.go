// Package recipient maps source names to the privacy contact of the data
// holder behind them. The registry is an external-configuration collaborator
// of the notice generator: deployments extend or override the built-in
// table without touching the pipeline.
package recipient

import (
	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
)

// Recipient is the takedown contact for one source.
type Recipient struct {
	// DisplayName of the platform or broker, used in the rendered notice.
	DisplayName string
	// Contact is the privacy mailbox or request portal.
	Contact string
	// Jurisdiction drives the legal basis of generated notices.
	Jurisdiction domain.Jurisdiction
}

// Registry resolves source names to recipients. Populated at startup,
// read-only afterwards.
type Registry struct {
	entries map[string]Recipient
}

// NewRegistry creates a registry preloaded with the built-in contact table.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Recipient)}
	for name, rec := range builtins {
		r.entries[name] = rec
	}

	return r
}

// Register adds or overrides the recipient for a source name.
func (r *Registry) Register(sourceName string, rec Recipient) {
	r.entries[sourceName] = rec
}

// Resolve returns the recipient for a source name, or a
// RECIPIENT_RESOLUTION_FAILURE error when none is known.
func (r *Registry) Resolve(sourceName string) (Recipient, error) {
	rec, ok := r.entries[sourceName]
	if !ok {
		return Recipient{}, serrors.With(serrors.ErrRecipientResolution,
			"no takedown recipient known for source %q", sourceName)
	}

	return rec, nil
}

// builtins is the default contact table for the bundled adapters.
var builtins = map[string]Recipient{ //nolint: gochecknoglobals
	"twitter": {
		DisplayName:  "Twitter/X",
		Contact:      "privacy@x.com",
		Jurisdiction: domain.JurisdictionUSCalifornia,
	},
	"instagram": {
		DisplayName:  "Instagram",
		Contact:      "privacy@instagram.com",
		Jurisdiction: domain.JurisdictionUSCalifornia,
	},
	"github": {
		DisplayName:  "GitHub",
		Contact:      "privacy@github.com",
		Jurisdiction: domain.JurisdictionUSCalifornia,
	},
	"gravatar": {
		DisplayName:  "Gravatar",
		Contact:      "privacy@automattic.com",
		Jurisdiction: domain.JurisdictionUSCalifornia,
	},
	"brokerdir": {
		DisplayName:  "Broker Directory",
		Contact:      "privacy@brokerdir.example",
		Jurisdiction: domain.JurisdictionEU,
	},
	// hibp is deliberately absent: it is a breach notification service, not
	// a data holder, so there is nobody to send a takedown to.
}
