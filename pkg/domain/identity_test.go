package domain_test

import (
	"testing"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentityToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "plain address", raw: "user@example.com", want: "user@example.com", valid: true},
		{name: "domain lowercased", raw: "User@EXAMPLE.COM", want: "User@example.com", valid: true},
		{name: "surrounding whitespace", raw: "  user@example.com ", want: "user@example.com", valid: true},
		{name: "no at sign", raw: "userexample.com", valid: false},
		{name: "dotless domain", raw: "user@localhost", valid: false},
		{name: "display name form", raw: "User <user@example.com>", valid: false},
		{name: "empty", raw: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := domain.NewIdentityToken(tt.raw)
			if !tt.valid {
				require.Error(t, err)
				assert.ErrorIs(t, err, serrors.ErrInvalidToken)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token.String())
		})
	}
}

func TestIdentityTokenParts(t *testing.T) {
	t.Parallel()

	token, err := domain.NewIdentityToken("jane.doe@corp.example")
	require.NoError(t, err)

	assert.Equal(t, "jane.doe", token.LocalPart())
	assert.Equal(t, "corp.example", token.Domain())
}

func TestRegistrableDomainSkipsFreeMail(t *testing.T) {
	t.Parallel()

	corp, err := domain.NewIdentityToken("jane@mail.corp.co.uk")
	require.NoError(t, err)
	assert.Equal(t, "corp.co.uk", corp.RegistrableDomain())

	free, err := domain.NewIdentityToken("jane@gmail.com")
	require.NoError(t, err)
	assert.Empty(t, free.RegistrableDomain())
}

func TestScanStatusTransitions(t *testing.T) {
	t.Parallel()

	active := []domain.ScanStatus{
		domain.ScanStatusPending,
		domain.ScanStatusDiscovering,
		domain.ScanStatusAuditing,
		domain.ScanStatusGeneratingNotices,
	}

	for i := 0; i < len(active)-1; i++ {
		assert.True(t, active[i].CanTransitionTo(active[i+1]),
			"%s should step to %s", active[i], active[i+1])
	}
	assert.True(t, domain.ScanStatusGeneratingNotices.CanTransitionTo(domain.ScanStatusCompleted))

	// no skipping ahead and no going back
	assert.False(t, domain.ScanStatusPending.CanTransitionTo(domain.ScanStatusAuditing))
	assert.False(t, domain.ScanStatusAuditing.CanTransitionTo(domain.ScanStatusDiscovering))

	// failed and cancelled are reachable from any non-terminal state
	for _, s := range active {
		assert.True(t, s.CanTransitionTo(domain.ScanStatusFailed))
		assert.True(t, s.CanTransitionTo(domain.ScanStatusCancelled))
	}

	// terminal states never move again
	for _, s := range []domain.ScanStatus{
		domain.ScanStatusCompleted,
		domain.ScanStatusFailed,
		domain.ScanStatusCancelled,
	} {
		assert.True(t, s.Terminal())
		assert.False(t, s.CanTransitionTo(domain.ScanStatusPending))
		assert.False(t, s.CanTransitionTo(domain.ScanStatusFailed))
	}
}

func TestNoticeStatusTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.NoticeStatusDrafted.CanTransitionTo(domain.NoticeStatusQueued))
	assert.True(t, domain.NoticeStatusQueued.CanTransitionTo(domain.NoticeStatusSent))
	assert.True(t, domain.NoticeStatusQueued.CanTransitionTo(domain.NoticeStatusFailed))
	assert.True(t, domain.NoticeStatusFailed.CanTransitionTo(domain.NoticeStatusQueued))

	assert.False(t, domain.NoticeStatusDrafted.CanTransitionTo(domain.NoticeStatusSent))
	assert.False(t, domain.NoticeStatusSent.CanTransitionTo(domain.NoticeStatusQueued))
	assert.False(t, domain.NoticeStatusFailed.CanTransitionTo(domain.NoticeStatusSent))
}

func TestClusterHelpers(t *testing.T) {
	t.Parallel()

	cluster := domain.ExposureCluster{
		Members: []domain.NormalizedCandidate{
			{Source: "twitter", Handle: "https://x.com/user123", Confidence: 0.6},
			{Source: "github", Handle: "https://github.com/user123", Confidence: 0.6},
			{Source: "gravatar", Handle: "https://gravatar.com/user123", Confidence: 0.5},
			{Source: "twitter", Handle: "https://x.com/user123", Confidence: 0.4},
		},
	}

	// ties break towards the lexicographically smaller source
	assert.Equal(t, "https://github.com/user123", cluster.PrimaryHandle())
	assert.Equal(t, []string{"twitter", "github", "gravatar"}, cluster.Sources())
}
