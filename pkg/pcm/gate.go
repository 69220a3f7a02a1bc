package pcm

import "time"

// minSpeechChunks is how many chunks must be read before trailing silence may end a recording.
const minSpeechChunks = 5

// SilenceGate decides when a voice-activated recording should stop.
// Feed it every chunk in order; it reports stop once speech has been heard and
// has been followed by enough quiet chunks, or once the hard ceiling is hit.
type SilenceGate struct {
	threshold     float64
	silenceChunks int
	maxChunks     int

	chunks  int
	silent  int
	speech  bool
	ceiling bool
}

// NewSilenceGate sizes the gate for chunks of chunkFrames frames at sampleRate.
// threshold is a mean absolute amplitude in int16 units.
func NewSilenceGate(threshold float64, silence, ceiling time.Duration, sampleRate, chunkFrames int) *SilenceGate {
	perSecond := float64(sampleRate) / float64(chunkFrames)

	silenceChunks := int(silence.Seconds() * perSecond)
	if silenceChunks < 1 {
		silenceChunks = 1
	}

	return &SilenceGate{
		threshold:     threshold,
		silenceChunks: silenceChunks,
		maxChunks:     int(ceiling.Seconds() * perSecond),
	}
}

// Feed registers one chunk and reports whether recording should stop after it.
func (g *SilenceGate) Feed(chunk []int16) bool {
	g.chunks++

	if MeanAmplitude(chunk) > g.threshold {
		g.speech = true
		g.silent = 0
	} else if g.speech && g.chunks > minSpeechChunks {
		g.silent++
		if g.silent >= g.silenceChunks {
			return true
		}
	}

	if g.maxChunks > 0 && g.chunks > g.maxChunks {
		g.ceiling = true
		return true
	}

	return false
}

func (g *SilenceGate) SpeechDetected() bool { return g.speech }

// HitCeiling reports whether the gate stopped on the safety limit rather than on silence.
func (g *SilenceGate) HitCeiling() bool { return g.ceiling }

func (g *SilenceGate) Chunks() int { return g.chunks }
