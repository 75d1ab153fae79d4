// Package social provides username-page probing adapters for social
// platforms. One Client is registered per platform; all share the same
// probing logic and differ only in their Platform configuration.
//
// The probe is inherently fuzzy: the username is guessed from the identity
// token's local part, so a hit only means an account with that handle
// exists, not that it belongs to the identity. Confidence reflects that.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"
)

// FuzzyUsernameConfidence is the match strength assigned to a profile found
// under the guessed username.
const FuzzyUsernameConfidence = 0.4

// Platform describes one social platform probe target.
type Platform struct {
	// Name is the registry source name, e.g. "twitter".
	Name string
	// ProfileURL is a format string receiving the username, e.g.
	// "https://x.com/%s".
	ProfileURL string
	// NotFoundMarker is a substring of the response body that indicates the
	// platform served a soft 404 under HTTP 200.
	NotFoundMarker string
}

// Defaults returns the built-in platform set.
func Defaults() []Platform {
	return []Platform{
		{Name: "twitter", ProfileURL: "https://x.com/%s", NotFoundMarker: "this account doesn"},
		{Name: "instagram", ProfileURL: "https://www.instagram.com/%s/", NotFoundMarker: "page not found"},
		{Name: "github", ProfileURL: "https://github.com/%s", NotFoundMarker: "page not found"},
	}
}

// Client probes one platform's public profile page for the guessed
// username.
type Client struct {
	httpClient *http.Client
	platform   Platform
}

// New constructs a Client for the given platform.
func New(httpClient *http.Client, platform Platform) *Client {
	return &Client{httpClient: httpClient, platform: platform}
}

// Name implements source.Adapter.
func (c *Client) Name() string { return c.platform.Name }

type payload struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profileUrl"`
	PageTitle  string `json:"pageTitle,omitempty"`
}

// Probe fetches the profile page for the token's local part. Any non-2xx
// status or a soft-404 marker in the body counts as "no match".
func (c *Client) Probe(ctx context.Context, token domain.IdentityToken) ([]domain.RawCandidate, error) {
	username := token.LocalPart()
	profileURL := fmt.Sprintf(c.platform.ProfileURL, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, serrors.Wrap(serrors.ErrSourceTimeout, err, "%s probe timed out", c.platform.Name)
		}

		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not reach %s", c.platform.Name)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, serrors.With(serrors.ErrSourceRateLimited, "%s rate limited", c.platform.Name)
	}
	if resp.StatusCode != http.StatusOK {
		// profile pages 404 for unknown usernames; treat any other failure
		// as "no match" as well since social pages are best-effort signals
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not read %s response", c.platform.Name)
	}
	lower := strings.ToLower(string(body))
	if c.platform.NotFoundMarker != "" && strings.Contains(lower, c.platform.NotFoundMarker) {
		return nil, nil
	}

	raw, err := json.Marshal(payload{
		Username:   username,
		ProfileURL: profileURL,
		PageTitle:  pageTitle(string(body)),
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal payload: %w", err)
	}

	return []domain.RawCandidate{{
		Source:      c.platform.Name,
		Payload:     raw,
		RetrievedAt: time.Now().UTC(),
		Confidence:  FuzzyUsernameConfidence,
	}}, nil
}

// pageTitle extracts the HTML <title> text, if any.
func pageTitle(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "<title>")
	if start < 0 {
		return ""
	}
	start += len("<title>")
	end := strings.Index(lower[start:], "</title>")
	if end < 0 {
		return ""
	}

	return strings.TrimSpace(body[start : start+end])
}

// Normalize implements source.Adapter.
func (c *Client) Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error) {
	var p payload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return domain.NormalizedCandidate{}, fmt.Errorf("could not decode %s payload: %w", c.platform.Name, err)
	}

	evidence := map[string]string{"username": p.Username}
	if p.PageTitle != "" {
		evidence["pageTitle"] = p.PageTitle
	}

	return domain.NormalizedCandidate{
		Source:        c.platform.Name,
		Type:          domain.CandidateTypeAccount,
		Handle:        p.ProfileURL,
		MatchedFields: []domain.MatchedField{domain.MatchedFieldUsername},
		Confidence:    raw.Confidence,
		RetrievedAt:   raw.RetrievedAt,
		Evidence:      evidence,
	}, nil
}

var _ source.Adapter = (*Client)(nil)
