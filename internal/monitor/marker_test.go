package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/crontab/internal/testutil"
)

func TestMemoryMarker(t *testing.T) {
	ctx := context.Background()
	marker := NewMemoryMarker()

	_, ok, err := marker.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Unix(1760000000, 123)
	require.NoError(t, marker.Store(ctx, now))

	got, ok, err := marker.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, now.Unix(), got.Unix())
}

func TestKVMarker(t *testing.T) {
	_, js := testutil.StartJetStream(t)
	ctx := context.Background()

	marker, err := NewKVMarker(js, "crontab", DefaultRestartKey)
	require.NoError(t, err)
	assert.Equal(t, "crontab.restart", marker.Key())

	_, ok, err := marker.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Unix(1760000000, 0)
	require.NoError(t, marker.Store(ctx, now))

	got, ok, err := marker.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, now.Equal(got))

	// A second daemon binding to the same bucket sees the same marker.
	other, err := NewKVMarker(js, "crontab", DefaultRestartKey)
	require.NoError(t, err)
	got, ok, err = other.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, now.Equal(got))
}
