// Package hibp provides a source.Adapter backed by the HaveIBeenPwned v3
// breached-account API. Hits become leaked-record candidates with exact
// email confidence.
package hibp

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
const SourceName = "hibp"

const baseURL = "https://haveibeenpwned.com/api/v3"

// Client talks to the HaveIBeenPwned REST API. It is safe for concurrent
// use. A paid API key is required; construction fails without one so a
// misconfigured deployment is caught at startup rather than per scan.
type Client struct {
	httpClient *http.Client
	apiKey     string
}

// New constructs a Client using the provided http.Client and API key.
func New(httpClient *http.Client, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, serrors.With(serrors.ErrBadRequest, "hibp: API key not configured")
	}

	return &Client{httpClient: httpClient, apiKey: apiKey}, nil
}

// Name implements source.Adapter.
func (c *Client) Name() string { return SourceName }

// breach is the subset of the HIBP breach model the pipeline cares about.
type breach struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
}

// payload is the adapter-native raw candidate payload.
type payload struct {
	Account  string   `json:"account"`
	Breaches []breach `json:"breaches"`
}

// Probe checks the identity token's email against the breached-account
// endpoint. A 404 means no breaches, which is a successful empty result.
//
// https://haveibeenpwned.com/API/v3#BreachesForAccount
func (c *Client) Probe(ctx context.Context, token domain.IdentityToken) ([]domain.RawCandidate, error) {
	probeURL := baseURL + "/breachedaccount/" + url.PathEscape(token.String()) + "?truncateResponse=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("hibp-api-key", c.apiKey)
	req.Header.Set("User-Agent", "ghostscan")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, serrors.Wrap(serrors.ErrSourceTimeout, err, "hibp probe timed out")
		}

		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not reach hibp")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// no known breaches for this account
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrSourceRateLimited,
			"hibp rate limited, retry after %s", strings.TrimSpace(resp.Header.Get("Retry-After")))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrSourceUnavailable, "hibp returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not read hibp response")
	}
	var breaches []breach
	if err := json.Unmarshal(b, &breaches); err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not decode hibp response")
	}
	if len(breaches) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(payload{Account: token.String(), Breaches: breaches})
	if err != nil {
		return nil, fmt.Errorf("could not marshal payload: %w", err)
	}

	return []domain.RawCandidate{{
		Source:      SourceName,
		Payload:     raw,
		RetrievedAt: time.Now().UTC(),
		// the account endpoint matches the exact email only
		Confidence: 1.0,
	}}, nil
}

// Normalize implements source.Adapter. All breaches for one account form a
// single leaked-record candidate; the per-breach detail stays in evidence.
func (c *Client) Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error) {
	var p payload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return domain.NormalizedCandidate{}, fmt.Errorf("could not decode hibp payload: %w", err)
	}

	names := make([]string, 0, len(p.Breaches))
	var exposed int64
	mostRecent := ""
	for _, b := range p.Breaches {
		names = append(names, b.Name)
		exposed += b.PwnCount
		if b.BreachDate > mostRecent {
			mostRecent = b.BreachDate
		}
	}
	if len(names) > 20 {
		names = names[:20]
	}

	return domain.NormalizedCandidate{
		Source:        SourceName,
		Type:          domain.CandidateTypeLeakedRecord,
		Handle:        "https://haveibeenpwned.com/account/" + url.PathEscape(p.Account),
		MatchedFields: []domain.MatchedField{domain.MatchedFieldEmail},
		Confidence:    raw.Confidence,
		RetrievedAt:   raw.RetrievedAt,
		Evidence: map[string]string{
			"breaches":         strings.Join(names, ", "),
			"breachCount":      fmt.Sprintf("%d", len(p.Breaches)),
			"recordsExposed":   fmt.Sprintf("%d", exposed),
			"mostRecentBreach": mostRecent,
		},
	}, nil
}

// Ensure Client conforms to the source.Adapter interface at compile time.
var _ source.Adapter = (*Client)(nil)
