// Package stt turns recorded clips into text.
//
// Every backend has the same shape: Transcribe(ctx, path) returns the trimmed
// transcript, an empty string when nothing was said, or an error when the
// clip could not be processed.
package stt

import "errors"

var (
	// ErrAudioMissing is returned when the clip to transcribe does not exist.
	ErrAudioMissing = errors.New("audio file not found")
	ErrNoSamples    = errors.New("no audio samples provided")
)

type Options struct {
	Language      string // "en", "ru", "auto"
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int     // 0 = greedy
	Temperature   float32 // 0 = default
	MaxSamples    int     // cap on decoded samples, 0 = no cap
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

