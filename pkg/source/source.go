// Package source defines the capability interface implemented by every
// platform and data-broker adapter, together with the registry external
// configuration plugs implementations into. New sources register an
// implementation; the scout and auditor never change.
package source

import (
	"context"
	"sort"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
)

// Adapter queries one external source for candidate matches of an identity
// token. Implementations must not block past the caller-enforced timeout,
// must return an empty slice (not an error) when the source is reachable
// but yields no match, and must tag every candidate with their own source
// name and a confidence in [0,1].
type Adapter interface {
	// Name is the unique source name, e.g. "hibp" or "gravatar".
	Name() string
	// Probe issues the outbound lookup and returns raw candidates. Errors
	// are reported with serrors kinds (unavailable, timeout, rate limited).
	Probe(ctx context.Context, token domain.IdentityToken) ([]domain.RawCandidate, error)
	// Normalize maps one of this adapter's raw candidates into the common
	// schema. Each source owns its payload shape, so normalization lives
	// with the adapter rather than in the scout.
	Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error)
}

// Policy carries the per-source limits applied by the scout.
type Policy struct {
	// Timeout bounds a single probe. Zero means the scout default applies.
	Timeout time.Duration
}

// Registry maps source names to adapter implementations and their policies.
// It is populated once at startup and read-only afterwards, so no locking
// is needed.
type Registry struct {
	adapters map[string]Adapter
	policies map[string]Policy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		policies: make(map[string]Policy),
	}
}

// Register adds an adapter under its own name. Registering the same name
// twice replaces the earlier adapter.
func (r *Registry) Register(a Adapter, p Policy) {
	r.adapters[a.Name()] = a
	r.policies[a.Name()] = p
}

// Get returns the adapter registered under name, or nil.
func (r *Registry) Get(name string) Adapter {
	return r.adapters[name]
}

// Policy returns the policy for name; the zero Policy when unknown.
func (r *Registry) Policy(name string) Policy {
	return r.policies[name]
}

// Names returns all registered source names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// Resolve maps the requested source names to adapters. An empty request
// resolves to every registered adapter. Unknown and duplicate names are
// rejected so a typo does not silently shrink or double-probe the scan.
func (r *Registry) Resolve(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		all := make([]Adapter, 0, len(r.adapters))
		for _, name := range r.Names() {
			all = append(all, r.adapters[name])
		}

		return all, nil
	}

	out := make([]Adapter, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		a, ok := r.adapters[name]
		if !ok {
			return nil, serrors.With(serrors.ErrBadRequest, "unknown source %q", name)
		}
		if _, ok := seen[name]; ok {
			return nil, serrors.With(serrors.ErrBadRequest, "duplicate source %q", name)
		}
		seen[name] = struct{}{}
		out = append(out, a)
	}

	return out, nil
}
