package scenario

import (
	"bufio"
	"errors"
	"fmt"
	log "log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	FunFact       = "fun_fact"
	FunFactPrefix = "Here's a fun fact for you: "

	missingFacts = "I'd love to share a fun fact, but I seem to have misplaced my list!"
)

// Responses holds the canned texts. Templates is keyed by intent name.
type Responses struct {
	Templates map[string]string
	Fallback  string
	Startup   string
	Shutdown  string
	Error     string
}

type Option func(*Selector)

// WithRand replaces the random source used to pick fun facts.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// Selector turns an intent into the text Pluto should say.
type Selector struct {
	resp  Responses
	facts []string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(resp Responses, facts []string, opts ...Option) *Selector {
	if len(facts) == 0 {
		facts = []string{missingFacts}
	}
	if resp.Startup == "" {
		resp.Startup = "Hello! I'm ready!"
	}
	if resp.Shutdown == "" {
		resp.Shutdown = "Goodbye!"
	}
	if resp.Error == "" {
		resp.Error = "Sorry, I encountered an error. Please try again."
	}

	s := &Selector{
		resp:  resp,
		facts: facts,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// Respond returns the response for intent. Unknown intents get the fallback.
func (s *Selector) Respond(intent string) string {
	if intent == FunFact {
		s.mu.Lock()
		fact := s.facts[s.rng.Intn(len(s.facts))]
		s.mu.Unlock()

		log.Debug("Fun fact picked", "fact", fact)
		return FunFactPrefix + fact
	}

	if t, ok := s.resp.Templates[intent]; ok && t != "" {
		return t
	}

	return s.resp.Fallback
}

func (s *Selector) StartupMessage() string  { return s.resp.Startup }
func (s *Selector) ShutdownMessage() string { return s.resp.Shutdown }
func (s *Selector) ErrorMessage() string    { return s.resp.Error }

func (s *Selector) FactCount() int { return len(s.facts) }

// LoadFacts reads one fact per line, skipping blanks and '#' comments.
// A missing file is not an error: it yields no facts.
func LoadFacts(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("Fun facts file not found", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open facts: %w", err)
	}
	defer f.Close()

	var facts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		facts = append(facts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}

	log.Info("Loaded fun facts", "count", len(facts))
	return facts, nil
}
