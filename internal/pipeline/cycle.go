package pipeline

import (
	"context"
	"time"
)

const (
	SourceVoice   = "voice"
	SourceControl = "control"
)

// Cycle records one finished request cycle.
type Cycle struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Transcript string        `json:"transcript"`
	Intent     string        `json:"intent"`
	Response   string        `json:"response"`
	NoSpeech   bool          `json:"no_speech"`
	Err        string        `json:"error,omitempty"`
}

// Failed reports whether the cycle hit an error rather than plain silence.
func (c Cycle) Failed() bool { return c.Err != "" }

// Observer receives every finished cycle. Errors are logged and ignored.
type Observer interface {
	Observe(ctx context.Context, c Cycle) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Cycle) error

func (f ObserverFunc) Observe(ctx context.Context, c Cycle) error { return f(ctx, c) }

const (
	RequestFact = "fact"
	RequestSay  = "say"
)

// Request is an out-of-band ask, handled between listening cycles.
type Request struct {
	Kind string
	Text string
}
