package tts

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"time"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

type Player interface {
	Play(ctx context.Context, path string) error
}

// Ducker lowers other audio while Pluto speaks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, fade time.Duration) error
	UnduckOthers(ctx context.Context, fade time.Duration) error
}

// Fallback speaks text directly, without a file or player.
type Fallback interface {
	Available() bool
	Say(text string) error
}

type VoiceOption func(*Voice)

func WithDucker(d Ducker, factor float64, fade time.Duration) VoiceOption {
	return func(v *Voice) {
		v.ducker = d
		v.duckFactor = factor
		v.duckFade = fade
	}
}

func WithFallback(f Fallback) VoiceOption {
	return func(v *Voice) { v.fallback = f }
}

// Voice composes synthesis and playback around a temporary wav file.
type Voice struct {
	synth   Synthesizer
	player  Player
	tempDir string

	ducker     Ducker
	duckFactor float64
	duckFade   time.Duration

	fallback Fallback
}

func NewVoice(synth Synthesizer, player Player, tempDir string, opts ...VoiceOption) *Voice {
	v := &Voice{
		synth:   synth,
		player:  player,
		tempDir: tempDir,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Speak synthesizes text and plays it. The temporary file is removed on every
// path. When synthesis fails the player is not called.
func (v *Voice) Speak(ctx context.Context, text string) error {
	log.Info("Speaking", "text", text)

	f, err := os.CreateTemp(v.tempDir, "pluto-tts-*.wav")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := v.synth.Synthesize(ctx, text, path); err != nil {
		log.Error("Failed to synthesize", "err", err)
		return v.speakFallback(text, err)
	}

	if v.ducker != nil {
		if err := v.ducker.DuckOthers(ctx, v.duckFactor, v.duckFade); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			// ctx may already be cancelled on shutdown; volumes still need restoring
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := v.ducker.UnduckOthers(uctx, v.duckFade); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	if err := v.player.Play(ctx, path); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	return nil
}

func (v *Voice) speakFallback(text string, cause error) error {
	if v.fallback == nil || !v.fallback.Available() {
		return cause
	}

	log.Warn("Using fallback voice")
	if err := v.fallback.Say(text); err != nil {
		return fmt.Errorf("%w (fallback: %v)", cause, err)
	}
	return nil
}
