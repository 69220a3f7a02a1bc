package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluto/pkg/audioconv"
)

func fakePiper(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piper")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestPiperSynthesizeWritesWAV(t *testing.T) {
	// 100 frames of silence as raw s16le
	bin := fakePiper(t, "cat > /dev/null\nhead -c 200 /dev/zero\n")
	out := filepath.Join(t.TempDir(), "out.wav")

	p := NewPiper(PiperConfig{Binary: bin, ModelPath: "voice.onnx", SampleRate: 16000})
	require.NoError(t, p.Synthesize(context.Background(), "Hello there.", out))

	clip, err := audioconv.ReadWAV(out)
	require.NoError(t, err)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.Equal(t, 1, clip.Channels)
	assert.Len(t, clip.Samples, 100)
}

func TestPiperReceivesTextAndArgs(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	textFile := filepath.Join(dir, "text")
	bin := fakePiper(t, `echo "$@" > `+argsFile+`
cat > `+textFile+`
head -c 4 /dev/zero
`)

	cfgPath := filepath.Join(dir, "voice.onnx.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"audio":{"sample_rate":24000}}`), 0o644))

	speaker := 3
	p := NewPiper(PiperConfig{
		Binary:      bin,
		ModelPath:   "voice.onnx",
		ConfigPath:  cfgPath,
		SpeakerID:   &speaker,
		LengthScale: 1.2,
	})
	assert.Equal(t, 24000, p.SampleRate())

	require.NoError(t, p.Synthesize(context.Background(), "Hi!", filepath.Join(dir, "o.wav")))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "--model voice.onnx --output-raw --config "+cfgPath+" --speaker 3 --length_scale 1.2\n", string(args))

	text, err := os.ReadFile(textFile)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", string(text))
}

func TestPiperSkipsMissingConfig(t *testing.T) {
	p := NewPiper(PiperConfig{ModelPath: "m.onnx", ConfigPath: "/nonexistent/m.onnx.json"})

	assert.Equal(t, defaultSampleRate, p.SampleRate())
	assert.NotContains(t, p.args(), "--config")
}

func TestPiperNonZeroExit(t *testing.T) {
	bin := fakePiper(t, "echo 'model not found' >&2\nexit 2\n")

	err := NewPiper(PiperConfig{Binary: bin, ModelPath: "m"}).Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "o.wav"))

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "model not found", exitErr.Stderr)
}

func TestPiperMissingBinary(t *testing.T) {
	p := NewPiper(PiperConfig{Binary: filepath.Join(t.TempDir(), "no-piper"), ModelPath: "m"})

	err := p.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "o.wav"))
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestPiperTimeout(t *testing.T) {
	bin := fakePiper(t, "exec sleep 5\n")
	p := NewPiper(PiperConfig{Binary: bin, ModelPath: "m", Timeout: 100 * time.Millisecond})

	err := p.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "o.wav"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPiperEmptyTextOrOutput(t *testing.T) {
	p := NewPiper(PiperConfig{Binary: fakePiper(t, "cat > /dev/null\n"), ModelPath: "m"})

	assert.ErrorIs(t, p.Synthesize(context.Background(), "  ", "unused.wav"), ErrEmptyText)
	assert.Error(t, p.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "o.wav")))
}
