// Package brokerdir provides a source.Adapter backed by a data-broker
// directory API: a service indexing which people-search and data-broker
// sites hold a listing for a given email address. Hits become
// broker-listing candidates.
package brokerdir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"
)

// SourceName is the registry name of this adapter.
const SourceName = "brokerdir"

// Options configure the directory endpoint and credentials.
type Options struct {
	// BaseURL of the directory API, without trailing slash.
	BaseURL string
	// APIKey sent as a bearer token.
	APIKey string
}

// Client queries the broker directory. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	options    Options
}

// New constructs a Client with the provided http.Client and options.
func New(httpClient *http.Client, options Options) (*Client, error) {
	if options.BaseURL == "" {
		return nil, serrors.With(serrors.ErrBadRequest, "brokerdir: base URL not configured")
	}

	return &Client{httpClient: httpClient, options: options}, nil
}

// Name implements source.Adapter.
func (c *Client) Name() string { return SourceName }

// listing is one directory entry: a broker site known to hold a record for
// the queried identity.
type listing struct {
	Broker     string   `json:"broker"`
	ListingURL string   `json:"listingUrl"`
	Fields     []string `json:"fields"`
}

// Probe searches the directory for listings matching the token's email and,
// when the mail domain is organization-owned, its registrable domain.
func (c *Client) Probe(ctx context.Context, token domain.IdentityToken) ([]domain.RawCandidate, error) {
	q := url.Values{"email": {token.String()}}
	if registrable := token.RegistrableDomain(); registrable != "" {
		q.Set("domain", registrable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.options.BaseURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if c.options.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	}
	req.Header.Set("User-Agent", "ghostscan")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, serrors.Wrap(serrors.ErrSourceTimeout, err, "brokerdir probe timed out")
		}

		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not reach brokerdir")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrSourceRateLimited, "brokerdir rate limited")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrSourceUnavailable, "brokerdir returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not read brokerdir response")
	}
	var search struct {
		Listings []listing `json:"listings"`
	}
	if err := json.Unmarshal(b, &search); err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not decode brokerdir response")
	}

	out := make([]domain.RawCandidate, 0, len(search.Listings))
	for _, l := range search.Listings {
		raw, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("could not marshal payload: %w", err)
		}
		out = append(out, domain.RawCandidate{
			Source:      SourceName,
			Payload:     raw,
			RetrievedAt: time.Now().UTC(),
			Confidence:  listingConfidence(l),
		})
	}

	return out, nil
}

// listingConfidence derives match strength from which fields the directory
// matched the listing on. An email match is near-certain; anything weaker
// degrades quickly.
func listingConfidence(l listing) float64 {
	conf := 0.3
	for _, f := range l.Fields {
		switch strings.ToLower(f) {
		case "email":
			return 0.9
		case "phone":
			conf = max(conf, 0.6)
		case "username", "domain":
			conf = max(conf, 0.5)
		}
	}

	return conf
}

// Normalize implements source.Adapter.
func (c *Client) Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error) {
	var l listing
	if err := json.Unmarshal(raw.Payload, &l); err != nil {
		return domain.NormalizedCandidate{}, fmt.Errorf("could not decode brokerdir payload: %w", err)
	}

	matched := make([]domain.MatchedField, 0, len(l.Fields))
	for _, f := range l.Fields {
		switch strings.ToLower(f) {
		case "email":
			matched = append(matched, domain.MatchedFieldEmail)
		case "username":
			matched = append(matched, domain.MatchedFieldUsername)
		case "phone":
			matched = append(matched, domain.MatchedFieldPhone)
		case "domain":
			matched = append(matched, domain.MatchedFieldDomain)
		}
	}

	return domain.NormalizedCandidate{
		Source:        SourceName,
		Type:          domain.CandidateTypeBrokerListing,
		Handle:        l.ListingURL,
		MatchedFields: matched,
		Confidence:    raw.Confidence,
		RetrievedAt:   raw.RetrievedAt,
		Evidence:      map[string]string{"broker": l.Broker},
	}, nil
}

var _ source.Adapter = (*Client)(nil)
