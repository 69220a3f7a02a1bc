package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"pluto/internal/intent"
	"pluto/internal/scenario"
	"pluto/pkg/audioconv"
	"pluto/pkg/pcm"
)

var ErrQueueFull = errors.New("request queue full")

type Recorder interface {
	Record(ctx context.Context, duration time.Duration) (pcm.Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type Detector interface {
	Detect(text string) string
}

type Responder interface {
	Respond(intent string) string
	StartupMessage() string
	ShutdownMessage() string
	ErrorMessage() string
}

type Humanizer interface {
	Humanize(text string) string
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Cue signals the user that listening is about to start.
type Cue interface {
	Play(ctx context.Context) error
}

type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Detector    Detector
	Responder   Responder
	Humanizer   Humanizer
	Speaker     Speaker

	Cue       Cue
	Observers []Observer
	Device    io.Closer
}

type Options struct {
	ListenDuration time.Duration // 0 = stop on silence
	TempDir        string
	QueueSize      int
}

type Orchestrator struct {
	deps Deps
	opt  Options

	mu    sync.Mutex
	state State

	requests chan Request
	onState  func(State) // test hook
	now      func() time.Time
}

func New(deps Deps, opt Options) (*Orchestrator, error) {
	switch {
	case deps.Recorder == nil:
		return nil, errors.New("pipeline: recorder is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case deps.Responder == nil:
		return nil, errors.New("pipeline: responder is required")
	case deps.Speaker == nil:
		return nil, errors.New("pipeline: speaker is required")
	}

	if deps.Humanizer == nil {
		deps.Humanizer = passthrough{}
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 8
	}

	return &Orchestrator{
		deps:     deps,
		opt:      opt,
		requests: make(chan Request, opt.QueueSize),
		now:      time.Now,
	}, nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	fn := o.onState
	o.mu.Unlock()

	if prev != s {
		log.Debug("State", "from", prev, "to", s)
	}
	if fn != nil {
		fn(s)
	}
}

// Submit queues a request for the next gap between cycles. It never blocks.
func (o *Orchestrator) Submit(r Request) error {
	select {
	case o.requests <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run greets, loops request cycles until ctx is cancelled, then shuts down.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info("Pluto is running")
	o.say(ctx, o.deps.Responder.StartupMessage())

	for ctx.Err() == nil {
		o.drainRequests(ctx)
		if ctx.Err() != nil {
			break
		}
		o.Cycle(ctx)
	}

	return o.Shutdown(context.Background())
}

func (o *Orchestrator) drainRequests(ctx context.Context) {
	for {
		select {
		case r := <-o.requests:
			o.handleRequest(ctx, r)
		default:
			return
		}
	}
}

func (o *Orchestrator) handleRequest(ctx context.Context, r Request) {
	rec := o.begin(SourceControl)
	defer o.finish(ctx, &rec)

	switch r.Kind {
	case RequestFact:
		rec.Intent = scenario.FunFact
		rec.Response = o.deps.Responder.Respond(scenario.FunFact)
	case RequestSay:
		rec.Response = r.Text
	default:
		rec.Err = fmt.Sprintf("unknown request %q", r.Kind)
		log.Warn("Dropping request", "kind", r.Kind)
		return
	}

	o.respond(ctx, &rec)
}

// Cycle runs one listen-and-answer round and returns its record. It never
// panics; failures are logged and answered with the error message.
func (o *Orchestrator) Cycle(ctx context.Context) (rec Cycle) {
	rec = o.begin(SourceVoice)
	defer o.finish(ctx, &rec)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Cycle panicked", "panic", r, "stack", string(debug.Stack()))
			rec.Err = fmt.Sprint(r)
			o.apologize(ctx)
		}
	}()

	if o.deps.Cue != nil {
		if err := o.deps.Cue.Play(ctx); err != nil {
			log.Warn("Failed to play cue", "err", err)
		}
	}

	o.setState(Listening)
	clip, err := o.deps.Recorder.Record(ctx, o.opt.ListenDuration)
	if err != nil {
		if ctx.Err() != nil {
			return rec
		}
		log.Error("Failed to record", "err", err)
		rec.Err = err.Error()
		o.apologize(ctx)
		return rec
	}

	if clip.Empty() {
		log.Info("No speech detected, sharing a fun fact")
		rec.NoSpeech = true
		rec.Intent = scenario.FunFact
		o.setState(Responding)
		rec.Response = o.deps.Responder.Respond(scenario.FunFact)
		o.respond(ctx, &rec)
		return rec
	}

	path, err := o.saveClip(clip)
	if err != nil {
		log.Error("Failed to save recording", "err", err)
		rec.Err = err.Error()
		o.apologize(ctx)
		return rec
	}
	defer os.Remove(path)

	o.setState(Transcribing)
	text, err := o.deps.Transcriber.Transcribe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return rec
		}
		log.Error("Failed to transcribe", "err", err)
		rec.Err = err.Error()
	}
	rec.Transcript = text
	if text == "" && err == nil {
		rec.NoSpeech = true
	}
	log.Info("Heard", "text", text)

	o.setState(MatchingIntent)
	rec.Intent = o.deps.Detector.Detect(text)
	log.Info("Intent", "name", rec.Intent)

	o.setState(Responding)
	rec.Response = o.deps.Responder.Respond(rec.Intent)

	o.respond(ctx, &rec)
	return rec
}

// saveClip writes the clip to a temp wav owned by the caller.
func (o *Orchestrator) saveClip(clip pcm.Clip) (string, error) {
	f, err := os.CreateTemp(o.opt.TempDir, "pluto-rec-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := audioconv.WriteWAV(path, clip); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save recording: %w", err)
	}
	return path, nil
}

func (o *Orchestrator) respond(ctx context.Context, rec *Cycle) {
	if rec.Intent == "" {
		rec.Intent = intent.Unknown
	}
	rec.Response = o.say(ctx, rec.Response)
}

// say humanizes and speaks text, returning what was actually said.
func (o *Orchestrator) say(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}

	o.setState(Speaking)
	text = o.deps.Humanizer.Humanize(text)
	if err := o.deps.Speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to speak", "err", err)
	}
	return text
}

func (o *Orchestrator) apologize(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	o.say(ctx, o.deps.Responder.ErrorMessage())
}

func (o *Orchestrator) begin(source string) Cycle {
	return Cycle{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: o.now(),
	}
}

func (o *Orchestrator) finish(ctx context.Context, rec *Cycle) {
	rec.Duration = o.now().Sub(rec.StartedAt)
	o.setState(Idle)

	// observers still see cycles cut short by shutdown
	octx := context.WithoutCancel(ctx)
	for _, obs := range o.deps.Observers {
		if err := obs.Observe(octx, *rec); err != nil {
			log.Warn("Observer failed", "cycle", rec.ID, "err", err)
		}
	}
}

// Shutdown says goodbye and releases the audio device.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.setState(ShuttingDown)
	log.Info("Shutting down")

	o.say(ctx, o.deps.Responder.ShutdownMessage())
	o.setState(ShuttingDown)

	if o.deps.Device != nil {
		if err := o.deps.Device.Close(); err != nil {
			return fmt.Errorf("release audio device: %w", err)
		}
	}
	return nil
}

type passthrough struct{}

func (passthrough) Humanize(text string) string { return text }
