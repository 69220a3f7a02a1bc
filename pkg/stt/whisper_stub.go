//go:build nowhisper

package stt

import (
	"context"
	"errors"
)

var errWhisperDisabled = errors.New("whisper model support disabled (built with -tags nowhisper)")

// Whisper is unavailable in nowhisper builds; use the CLI or cloud backend.
type Whisper struct{}

func NewWhisper(modelPath string, opt Options) (*Whisper, error) {
	return nil, errWhisperDisabled
}

func (w *Whisper) Close() error { return nil }

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	return "", errWhisperDisabled
}

func (w *Whisper) TranscribePCM(ctx context.Context, pcm16k []float32) (Result, error) {
	return Result{}, errWhisperDisabled
}
