package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluto/internal/pipeline"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "db", "pluto.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestObserveAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, j.Observe(ctx, pipeline.Cycle{
		ID: "a", Source: pipeline.SourceVoice, StartedAt: base,
		Duration: 1500 * time.Millisecond, Transcript: "hello", Intent: "greeting", Response: "Hi.",
	}))
	require.NoError(t, j.Observe(ctx, pipeline.Cycle{
		ID: "b", Source: pipeline.SourceVoice, StartedAt: base.Add(time.Minute),
		Intent: "unknown", Err: "decode failed",
	}))

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Failed())
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "hello", got[1].Transcript)
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.True(t, base.Equal(got[1].StartedAt))

	one, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestObserveRejectsDuplicateID(t *testing.T) {
	j := openTemp(t)
	c := pipeline.Cycle{ID: "dup", Source: pipeline.SourceVoice, StartedAt: time.Now()}

	require.NoError(t, j.Observe(context.Background(), c))
	assert.Error(t, j.Observe(context.Background(), c))
}

func TestStats(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	for i, c := range []pipeline.Cycle{
		{Intent: "greeting"},
		{Intent: "greeting"},
		{Intent: "fun_fact", NoSpeech: true},
		{Intent: "unknown", Err: "boom"},
	} {
		c.ID = string(rune('a' + i))
		c.Source = pipeline.SourceVoice
		c.StartedAt = time.Now()
		require.NoError(t, j.Observe(ctx, c))
	}

	s, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.NoSpeech)
	assert.Equal(t, map[string]int{"greeting": 2, "fun_fact": 1, "unknown": 1}, s.ByIntent)
}

func TestJournalIsObserver(t *testing.T) {
	var _ pipeline.Observer = (*Journal)(nil)
}
