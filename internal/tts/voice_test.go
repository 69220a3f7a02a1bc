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
)

type fakeSynth struct {
	err   error
	texts []string
	paths []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, out string) error {
	f.texts = append(f.texts, text)
	f.paths = append(f.paths, out)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("RIFF"), 0o644)
}

type fakePlayer struct {
	err    error
	played []string
	exists []bool
}

func (f *fakePlayer) Play(_ context.Context, path string) error {
	f.played = append(f.played, path)
	_, err := os.Stat(path)
	f.exists = append(f.exists, err == nil)
	return f.err
}

type fakeDucker struct{ calls []string }

func (f *fakeDucker) DuckOthers(context.Context, float64, time.Duration) error {
	f.calls = append(f.calls, "duck")
	return nil
}

func (f *fakeDucker) UnduckOthers(context.Context, time.Duration) error {
	f.calls = append(f.calls, "unduck")
	return nil
}

type fakeFallback struct{ said []string }

func (f *fakeFallback) Available() bool { return true }
func (f *fakeFallback) Say(text string) error {
	f.said = append(f.said, text)
	return nil
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpeakSynthesizesPlaysAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	synth, player := &fakeSynth{}, &fakePlayer{}

	require.NoError(t, NewVoice(synth, player, dir).Speak(context.Background(), "Hello."))

	assert.Equal(t, []string{"Hello."}, synth.texts)
	require.Len(t, player.played, 1)
	assert.Equal(t, synth.paths[0], player.played[0])
	assert.Equal(t, filepath.Dir(player.played[0]), dir)
	assert.True(t, player.exists[0])
	assertNoTempFiles(t, dir)
}

func TestSpeakSynthesisFailureSkipsPlayback(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{err: &ExitError{Code: 1}}
	player := &fakePlayer{}

	err := NewVoice(synth, player, dir).Speak(context.Background(), "Hello.")

	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Empty(t, player.played)
	assertNoTempFiles(t, dir)
}

func TestSpeakWithRealPiperFailure(t *testing.T) {
	dir := t.TempDir()
	bin := fakePiper(t, "exit 1\n")
	player := &fakePlayer{}

	voice := NewVoice(NewPiper(PiperConfig{Binary: bin, ModelPath: "m"}), player, dir)

	assert.NotPanics(t, func() {
		assert.Error(t, voice.Speak(context.Background(), "Hello."))
	})
	assert.Empty(t, player.played)
	assertNoTempFiles(t, dir)
}

func TestSpeakPlaybackFailureStillCleansUp(t *testing.T) {
	dir := t.TempDir()
	player := &fakePlayer{err: errors.New("no device")}

	err := NewVoice(&fakeSynth{}, player, dir).Speak(context.Background(), "Hello.")
	assert.ErrorContains(t, err, "no device")
	assertNoTempFiles(t, dir)
}

func TestSpeakDucksAroundPlayback(t *testing.T) {
	ducker := &fakeDucker{}
	voice := NewVoice(&fakeSynth{}, &fakePlayer{}, t.TempDir(), WithDucker(ducker, 0.3, 0))

	require.NoError(t, voice.Speak(context.Background(), "Hello."))
	assert.Equal(t, []string{"duck", "unduck"}, ducker.calls)

	ducker.calls = nil
	failing := NewVoice(&fakeSynth{err: ErrTimeout}, &fakePlayer{}, t.TempDir(), WithDucker(ducker, 0.3, 0))
	assert.Error(t, failing.Speak(context.Background(), "Hello."))
	assert.Empty(t, ducker.calls)
}

func TestSpeakUsesFallbackVoice(t *testing.T) {
	fb := &fakeFallback{}
	player := &fakePlayer{}

	voice := NewVoice(&fakeSynth{err: ErrNotInstalled}, player, t.TempDir(), WithFallback(fb))

	require.NoError(t, voice.Speak(context.Background(), "Hello."))
	assert.Equal(t, []string{"Hello."}, fb.said)
	assert.Empty(t, player.played)
}

func TestEspeakStubUnavailable(t *testing.T) {
	e := NewEspeak("en")
	if e.Available() {
		t.Skip("built with espeak")
	}
	assert.Error(t, e.Say("hi"))
}
