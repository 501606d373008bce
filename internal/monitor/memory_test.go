package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMemory(t *testing.T) {
	probe, err := NewProcessMemory()
	require.NoError(t, err)

	usage, err := probe.ResidentMB()
	require.NoError(t, err)
	assert.Greater(t, usage, 0.0)
}
