package pcm

import (
	"math"
	"time"
)

// Clip is a single recorded or decoded chunk of linear PCM.
// Samples are interleaved when Channels > 1.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
	BitDepth   int
}

func NewClip(sampleRate, channels int) Clip {
	return Clip{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
}

func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Frames is the number of samples per channel.
func (c Clip) Frames() int {
	ch := c.Channels
	if ch <= 0 {
		ch = 1
	}
	return len(c.Samples) / ch
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// FromBytes decodes little-endian s16 bytes. A trailing odd byte is dropped.
func FromBytes(raw []byte, sampleRate, channels int) Clip {
	c := NewClip(sampleRate, channels)
	c.Samples = make([]int16, len(raw)/2)
	for i := range c.Samples {
		c.Samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return c
}

// MeanAmplitude is the mean absolute sample value, in int16 units.
func MeanAmplitude(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}

	var s float64
	for _, x := range chunk {
		s += math.Abs(float64(x))
	}

	return s / float64(len(chunk))
}
