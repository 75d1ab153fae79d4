package gravatar_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source/gravatar"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(fn rtFunc) *gravatar.Client {
	return gravatar.New(&http.Client{Transport: fn})
}

func TestEmailHash(t *testing.T) {
	// hashes are of the lowercased, trimmed address
	require.Equal(t,
		"b58996c504c5638798eb6b511e6f49af",
		gravatar.EmailHash("user@example.com"))
	require.Equal(t,
		gravatar.EmailHash("user@example.com"),
		gravatar.EmailHash("  User@Example.COM "))
}

func TestClient_Probe_success(t *testing.T) {
	hash := gravatar.EmailHash("user@example.com")
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "gravatar.com", r.URL.Host)
		require.Equal(t, "/"+hash+".json", r.URL.Path)

		body := `{"entry":[{"hash":"` + hash + `","profileUrl":"https://gravatar.com/user123",` +
			`"preferredUsername":"user123","displayName":"User Example"}]}`

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})

	raws, err := c.Probe(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, raws, 1)

	cand, err := c.Normalize(raws[0])
	require.NoError(t, err)
	require.Equal(t, domain.CandidateTypeAccount, cand.Type)
	require.Equal(t, "https://gravatar.com/user123", cand.Handle)
	require.Equal(t,
		[]domain.MatchedField{domain.MatchedFieldEmail, domain.MatchedFieldUsername},
		cand.MatchedFields)
	require.Equal(t, "User Example", cand.Evidence["displayName"])
	require.InDelta(t, 1.0, cand.Confidence, 1e-9)
}

func TestClient_Probe_noProfile(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})

	raws, err := c.Probe(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.Empty(t, raws)
}

func TestClient_Probe_rateLimited(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})

	_, err := c.Probe(context.Background(), "user@example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrSourceRateLimited)
}

func TestClient_Normalize_fallbackProfileURL(t *testing.T) {
	hash := gravatar.EmailHash("user@example.com")
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		body := `{"entry":[{"hash":"` + hash + `"}]}`

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})

	raws, err := c.Probe(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, raws, 1)

	cand, err := c.Normalize(raws[0])
	require.NoError(t, err)
	require.Equal(t, "https://gravatar.com/"+hash, cand.Handle)
	require.Equal(t, []domain.MatchedField{domain.MatchedFieldEmail}, cand.MatchedFields)
}
