// Package gravatar provides a source.Adapter that looks up the public
// Gravatar profile for an email address. Gravatar profiles are keyed by the
// MD5 hash of the lowercased address, so a hit is an exact email match.
package gravatar

import (
	"context"
	"crypto/md5" //nolint: gosec
	"encoding/hex"
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

// SourceName is the registry name of this adapter.
const SourceName = "gravatar"

const baseURL = "https://gravatar.com"

// Client queries the public Gravatar profile API. No credentials needed.
type Client struct {
	httpClient *http.Client
}

// New constructs a Client using the provided http.Client.
func New(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Name implements source.Adapter.
func (c *Client) Name() string { return SourceName }

type payload struct {
	Hash        string `json:"hash"`
	ProfileURL  string `json:"profileUrl"`
	Username    string `json:"preferredUsername"`
	DisplayName string `json:"displayName"`
}

// EmailHash returns the Gravatar lookup hash for an email address.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint: gosec
	return hex.EncodeToString(sum[:])
}

// Probe fetches the JSON profile for the token's email hash. A 404 means no
// profile exists, which is a successful empty result.
func (c *Client) Probe(ctx context.Context, token domain.IdentityToken) ([]domain.RawCandidate, error) {
	hash := EmailHash(token.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/"+hash+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", "ghostscan")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, serrors.Wrap(serrors.ErrSourceTimeout, err, "gravatar probe timed out")
		}

		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not reach gravatar")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrSourceRateLimited, "gravatar rate limited")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrSourceUnavailable, "gravatar returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not read gravatar response")
	}

	var profile struct {
		Entry []payload `json:"entry"`
	}
	if err := json.Unmarshal(b, &profile); err != nil {
		return nil, serrors.Wrap(serrors.ErrSourceUnavailable, err, "could not decode gravatar response")
	}
	if len(profile.Entry) == 0 {
		return nil, nil
	}

	out := make([]domain.RawCandidate, 0, len(profile.Entry))
	for _, entry := range profile.Entry {
		if entry.ProfileURL == "" {
			entry.ProfileURL = baseURL + "/" + entry.Hash
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("could not marshal payload: %w", err)
		}
		out = append(out, domain.RawCandidate{
			Source:      SourceName,
			Payload:     raw,
			RetrievedAt: time.Now().UTC(),
			Confidence:  1.0, // profiles are keyed by the exact email hash
		})
	}

	return out, nil
}

// Normalize implements source.Adapter.
func (c *Client) Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error) {
	var p payload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return domain.NormalizedCandidate{}, fmt.Errorf("could not decode gravatar payload: %w", err)
	}

	evidence := map[string]string{}
	if p.DisplayName != "" {
		evidence["displayName"] = p.DisplayName
	}
	if p.Username != "" {
		evidence["username"] = p.Username
	}

	matched := []domain.MatchedField{domain.MatchedFieldEmail}
	if p.Username != "" {
		matched = append(matched, domain.MatchedFieldUsername)
	}

	return domain.NormalizedCandidate{
		Source:        SourceName,
		Type:          domain.CandidateTypeAccount,
		Handle:        p.ProfileURL,
		MatchedFields: matched,
		Confidence:    raw.Confidence,
		RetrievedAt:   raw.RetrievedAt,
		Evidence:      evidence,
	}, nil
}

var _ source.Adapter = (*Client)(nil)
