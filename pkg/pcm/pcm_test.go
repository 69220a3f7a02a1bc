package pcm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkOf(v int16, n int) []int16 {
	c := make([]int16, n)
	for i := range c {
		if i%2 == 0 {
			c[i] = v
		} else {
			c[i] = -v
		}
	}
	return c
}

func TestMeanAmplitude(t *testing.T) {
	assert.Equal(t, 0.0, MeanAmplitude(nil))
	assert.Equal(t, 100.0, MeanAmplitude(chunkOf(100, 8)))
}

func TestFromBytes(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x01, 0x00, 0xff, 0xff, 0xff, 0x7f, 0x00, 0x80, 0x2a}

	c := FromBytes(raw, 16000, 1)
	assert.Equal(t, []int16{0, 1, -1, 32767, -32768}, c.Samples)
	assert.Equal(t, 16, c.BitDepth)
	assert.Equal(t, 16000, c.SampleRate)
}

func TestClipDuration(t *testing.T) {
	c := NewClip(4, 2)
	c.Samples = []int16{16384, 16384, -16384, 0, 0, 0, 0, 0}

	assert.Equal(t, 4, c.Frames())
	assert.Equal(t, time.Second, c.Duration())
	assert.False(t, c.Empty())
	assert.True(t, NewClip(16000, 1).Empty())
}

func TestSilenceGateStopsAfterSpeechAndSilence(t *testing.T) {
	// 10 chunks per second, 0.3s of silence ends the recording.
	g := NewSilenceGate(500, 300*time.Millisecond, 5*time.Second, 1000, 100)

	loud := chunkOf(2000, 100)
	quiet := chunkOf(10, 100)

	for i := 0; i < 6; i++ {
		require.False(t, g.Feed(loud), "chunk %d", i)
	}
	assert.False(t, g.Feed(quiet))
	assert.False(t, g.Feed(quiet))
	assert.True(t, g.Feed(quiet))
	assert.True(t, g.SpeechDetected())
	assert.False(t, g.HitCeiling())
}

func TestSilenceGateIgnoresSilenceBeforeSpeech(t *testing.T) {
	g := NewSilenceGate(500, 100*time.Millisecond, time.Second, 1000, 100)

	quiet := chunkOf(10, 100)
	for i := 0; i < 10; i++ {
		require.False(t, g.Feed(quiet))
	}
	assert.False(t, g.SpeechDetected())

	// 11th chunk crosses the one second ceiling.
	assert.True(t, g.Feed(quiet))
	assert.True(t, g.HitCeiling())
}

func TestSilenceGateNeedsMinimumChunks(t *testing.T) {
	g := NewSilenceGate(500, 100*time.Millisecond, 10*time.Second, 1000, 100)

	assert.False(t, g.Feed(chunkOf(2000, 100)))
	// Early quiet chunks do not count while fewer than five chunks have been read.
	for i := 0; i < 4; i++ {
		require.False(t, g.Feed(chunkOf(0, 100)), "chunk %d", i)
	}
	assert.True(t, g.Feed(chunkOf(0, 100)))
	assert.Equal(t, 6, g.Chunks())
}
