package scout_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ghostscan/internal/scout"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/serrors"
	"ghostscan/pkg/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fakeAdapter is a scriptable source.Adapter for tests.
type fakeAdapter struct {
	name    string
	raws    []domain.RawCandidate
	err     error
	delay   time.Duration
	started *atomic.Int32
	running *atomic.Int32
	maxSeen *atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Probe(ctx context.Context, _ domain.IdentityToken) ([]domain.RawCandidate, error) {
	if f.started != nil {
		f.started.Add(1)
	}
	if f.running != nil {
		cur := f.running.Add(1)
		defer f.running.Add(-1)
		for {
			prev := f.maxSeen.Load()
			if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
				break
			}
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return f.raws, f.err
}

func (f *fakeAdapter) Normalize(raw domain.RawCandidate) (domain.NormalizedCandidate, error) {
	var payload struct {
		Handle string `json:"handle"`
	}
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return domain.NormalizedCandidate{}, err
	}

	return domain.NormalizedCandidate{
		Source:        f.name,
		Type:          domain.CandidateTypeAccount,
		Handle:        payload.Handle,
		MatchedFields: []domain.MatchedField{domain.MatchedFieldUsername},
		Confidence:    raw.Confidence,
		RetrievedAt:   raw.RetrievedAt,
	}, nil
}

func rawHandle(handle string, confidence float64) domain.RawCandidate {
	payload, _ := json.Marshal(map[string]string{"handle": handle})

	return domain.RawCandidate{Payload: payload, Confidence: confidence, RetrievedAt: time.Now()}
}

func newScout(opts scout.Options) *scout.Scout {
	return scout.New(source.NewRegistry(), opts, nil)
}

func mustToken(t *testing.T) domain.IdentityToken {
	t.Helper()
	token, err := domain.NewIdentityToken("user@example.com")
	require.NoError(t, err)

	return token
}

func TestDiscoverEmptyAdapterSet(t *testing.T) {
	t.Parallel()

	s := newScout(scout.Options{ConcurrencyLimit: 4})
	_, err := s.Discover(context.Background(), mustToken(t), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrEmptyAdapterSet)
}

func TestDiscoverCollectsAndOrders(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		// slow adapter listed first must still come first in the result
		&fakeAdapter{name: "alpha", delay: 30 * time.Millisecond, raws: []domain.RawCandidate{rawHandle("user123", 0.9)}},
		&fakeAdapter{name: "beta", raws: []domain.RawCandidate{rawHandle("user123", 0.6)}},
	}

	s := newScout(scout.Options{ConcurrencyLimit: 4})
	res, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "alpha", res.Candidates[0].Source)
	assert.Equal(t, "beta", res.Candidates[1].Source)
}

func TestDiscoverPartialFailure(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "ok", raws: []domain.RawCandidate{rawHandle("user123", 0.8)}},
		&fakeAdapter{name: "down", err: serrors.KindOnly(serrors.ErrSourceUnavailable)},
		&fakeAdapter{name: "throttled", err: serrors.KindOnly(serrors.ErrSourceRateLimited)},
	}

	s := newScout(scout.Options{ConcurrencyLimit: 4})
	res, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.Len(t, res.Failures, 2)

	reasons := map[string]string{}
	for _, failure := range res.Failures {
		reasons[failure.Source] = failure.Reason
	}
	assert.Equal(t, "unavailable", reasons["down"])
	assert.Equal(t, "rate limited", reasons["throttled"])
}

func TestDiscoverAllSourcesFail(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "a", err: serrors.KindOnly(serrors.ErrSourceUnavailable)},
		&fakeAdapter{name: "b", err: serrors.KindOnly(serrors.ErrSourceUnavailable)},
	}

	s := newScout(scout.Options{ConcurrencyLimit: 2})
	res, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Len(t, res.Failures, 2)
}

func TestDiscoverPerSourceTimeout(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "slow", delay: time.Second, raws: []domain.RawCandidate{rawHandle("user123", 0.9)}},
		&fakeAdapter{name: "fast", raws: []domain.RawCandidate{rawHandle("user123", 0.6)}},
	}

	s := newScout(scout.Options{ConcurrencyLimit: 4, PerSourceTimeout: 20 * time.Millisecond})
	res, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "fast", res.Candidates[0].Source)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "slow", res.Failures[0].Source)
	assert.Equal(t, "timeout", res.Failures[0].Reason)
}

func TestDiscoverConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var running, maxSeen atomic.Int32
	adapters := make([]source.Adapter, 0, 8)
	for range 8 {
		adapters = append(adapters, &fakeAdapter{
			name:    "src" + string(rune('a'+len(adapters))),
			delay:   20 * time.Millisecond,
			running: &running,
			maxSeen: &maxSeen,
		})
	}

	s := newScout(scout.Options{ConcurrencyLimit: 2})
	_, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestDiscoverCancellationDiscardsPartials(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	adapters := []source.Adapter{
		&fakeAdapter{name: "fast", raws: []domain.RawCandidate{rawHandle("user123", 0.9)}},
		&fakeAdapter{name: "slow", delay: time.Second},
	}

	var once sync.Once
	s := newScout(scout.Options{ConcurrencyLimit: 4})
	res, err := s.Discover(ctx, mustToken(t), adapters, func(done, total int) {
		once.Do(cancel)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrCancelled)
	assert.Empty(t, res.Candidates)
}

func TestDiscoverSameSourceDedup(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "dup", raws: []domain.RawCandidate{
			rawHandle("user123", 0.4),
			rawHandle("user123", 0.9),
			rawHandle("other", 0.5),
		}},
	}

	s := newScout(scout.Options{ConcurrencyLimit: 1})
	res, err := s.Discover(context.Background(), mustToken(t), adapters, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "user123", res.Candidates[0].Handle)
	assert.InDelta(t, 0.9, res.Candidates[0].Confidence, 1e-9)
	assert.Equal(t, "other", res.Candidates[1].Handle)
}

func TestDiscoverProgressReported(t *testing.T) {
	t.Parallel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "a"},
		&fakeAdapter{name: "b"},
		&fakeAdapter{name: "c"},
	}

	var calls atomic.Int32
	s := newScout(scout.Options{ConcurrencyLimit: 4})
	_, err := s.Discover(context.Background(), mustToken(t), adapters, func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
