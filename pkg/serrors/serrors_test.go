package serrors_test

import (
	"errors"
	"testing"

	"ghostscan/pkg/serrors"

	"github.com/stretchr/testify/require"
)

type customError struct{ msg string }

func (e customError) Error() string { return e.msg }

func TestKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrSourceUnavailable,
		serrors.ErrSourceTimeout,
		serrors.ErrSourceRateLimited,
		serrors.ErrInvalidToken,
		serrors.ErrEmptyAdapterSet,
		serrors.ErrRecipientResolution,
		serrors.ErrCancelled,
		serrors.ErrNotFound,
		serrors.ErrBadRequest,
		serrors.ErrConflict,
		serrors.ErrInternal,
	}
	seen := map[serrors.Kind]bool{}
	for i, k := range kinds {
		require.NotNil(t, k, "kind at index %d is nil", i)
		require.False(t, seen[k], "kind at index %d is duplicate: %v", i, k)
		seen[k] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("connection refused")

	e1 := serrors.With(serrors.ErrSourceUnavailable, "probing %s", "hibp")
	require.Equal(t, "probing hibp", e1.Error())

	e2 := serrors.Wrap(serrors.ErrSourceUnavailable, base, "probing hibp")
	require.Equal(t, "probing hibp: connection refused", e2.Error())

	e3 := serrors.KindOnly(serrors.ErrEmptyAdapterSet)
	require.Equal(t, "EMPTY_ADAPTER_SET", e3.Error())
}

func TestIsMatchesKindAndWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrSourceTimeout, base, "probing")

	require.ErrorIs(t, e, serrors.ErrSourceTimeout)
	require.ErrorIs(t, e, base)
	require.NotErrorIs(t, e, serrors.ErrSourceRateLimited, "errors.Is should not match a different kind")
}

func TestAsMatchesKindAndWrapped(t *testing.T) {
	base := &customError{"root cause"}
	e := serrors.Wrap(serrors.ErrInvalidToken, base, "validating")

	var k serrors.Kind
	require.ErrorAs(t, e, &k, "errors.As should extract Kind")
	require.Equal(t, serrors.ErrInvalidToken, k)

	var ce *customError
	require.ErrorAs(t, e, &ce, "errors.As should extract wrapped error type")
	require.Equal(t, base, ce)
}

func TestAccessors(t *testing.T) {
	e := serrors.Wrap(serrors.ErrConflict, errors.New("boom"), "illegal transition")
	require.Equal(t, serrors.ErrConflict, e.Kind())
	require.Equal(t, "illegal transition", e.Message())
}
