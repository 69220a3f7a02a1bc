package humanize

import (
	log "log/slog"
	"regexp"
	"strings"
)

type substitution struct {
	re   *regexp.Regexp
	repl string
}

var (
	pauses = []substitution{
		{regexp.MustCompile(`(?i)^(Well|So|Actually|Basically|Honestly)\s+`), "${1}, "},
		{regexp.MustCompile(`(?i)^(By the way|As a matter of fact)\s+`), "${1}, "},
	}

	// Applied in this order; an earlier swap can change what a later one sees.
	casual = []substitution{
		{regexp.MustCompile(`(?i)\bI would like to\b`), "I'd like to"},
		{regexp.MustCompile(`(?i)\bI am\b`), "I'm"},
		{regexp.MustCompile(`(?i)\bYou are\b`), "You're"},
		{regexp.MustCompile(`(?i)\bIt is\b`), "It's"},
		{regexp.MustCompile(`(?i)\bThat is\b`), "That's"},
		{regexp.MustCompile(`(?i)\bCannot\b`), "Can't"},
		{regexp.MustCompile(`(?i)\bDo not\b`), "Don't"},
		{regexp.MustCompile(`(?i)\bWill not\b`), "Won't"},
	}

	spacesRe      = regexp.MustCompile(`\s+`)
	// Letters only: a digit after the mark is a decimal or thousands
	// separator, so "3.14" and "1,000" stay intact.
	missingGapRe  = regexp.MustCompile(`([.,!?])([A-Za-z])`)
	spaceBeforeRe = regexp.MustCompile(`\s+([.,!?])`)
)

// Humanizer rewrites canned responses so they sound less robotic when spoken.
type Humanizer struct {
	enabled bool
}

func New(enabled bool) *Humanizer {
	return &Humanizer{enabled: enabled}
}

func (h *Humanizer) Enabled() bool { return h.enabled }

func (h *Humanizer) Humanize(text string) string {
	if !h.enabled || text == "" {
		return text
	}

	out := apply(pauses, text)
	out = apply(casual, out)
	out = fixPunctuation(out)

	log.Debug("Humanized", "in", text, "out", out)
	return out
}

func apply(subs []substitution, text string) string {
	for _, s := range subs {
		text = s.re.ReplaceAllString(text, s.repl)
	}
	return text
}

func fixPunctuation(text string) string {
	text = spacesRe.ReplaceAllString(text, " ")
	text = missingGapRe.ReplaceAllString(text, "$1 $2")
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)

	if text != "" && !strings.ContainsAny(text[len(text)-1:], ".!?") {
		text += "."
	}

	return text
}
