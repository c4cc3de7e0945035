package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkOrder(t *testing.T) {
	sink := NewMemorySink()
	Info(sink, "first")
	Success(sink, "second")
	Error(sink, "third")

	all := sink.All()
	require.Len(t, all, 3)
	assert.Equal(t, LevelInfo, all[0].Level)
	assert.Equal(t, LevelSuccess, all[1].Level)
	assert.Equal(t, LevelError, all[2].Level)
	assert.Equal(t, []string{"first", "second", "third"}, sink.Messages())

	// Each notification gets a distinct correlation id.
	assert.NotEqual(t, all[0].ID, all[1].ID)
}

func TestNilSinkIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(nil, "dropped")
		Success(nil, "dropped")
		Error(nil, "dropped")
	})
}

func TestMultiSink(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()
	multi := MultiSink{a, nil, b}

	Success(multi, "fanned out")

	require.Len(t, a.All(), 1)
	require.Len(t, b.All(), 1)
	assert.Equal(t, "fanned out", a.All()[0].Message)
}
