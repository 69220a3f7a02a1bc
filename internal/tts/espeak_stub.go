//go:build !espeak

package tts

import "errors"

// Espeak is a no-op unless built with -tags espeak.
type Espeak struct{}

func NewEspeak(lang string) *Espeak { return &Espeak{} }

func (e *Espeak) Available() bool { return false }

func (e *Espeak) Say(text string) error {
	return errors.New("espeak support not compiled in (build with -tags espeak)")
}
