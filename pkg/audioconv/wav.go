package audioconv

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pluto/pkg/pcm"
)

const wavFormatPCM = 1

// WriteWAV stores a 16-bit clip as a linear PCM wav file.
func WriteWAV(path string, clip pcm.Clip) error {
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return fmt.Errorf("invalid clip format: rate=%d channels=%d", clip.SampleRate, clip.Channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, clip.Channels, wavFormatPCM)

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(s)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: clip.Channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}

	return f.Close()
}

// RawToWAV frames raw little-endian s16 mono bytes as a wav file.
func RawToWAV(raw []byte, sampleRate int, path string) error {
	if len(raw) < 2 {
		return errors.New("no audio data")
	}
	return WriteWAV(path, pcm.FromBytes(raw, sampleRate, 1))
}

// ReadWAV loads a 16-bit wav file without resampling.
func ReadWAV(path string) (pcm.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Clip{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return pcm.Clip{}, fmt.Errorf("invalid wav: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("read wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return pcm.Clip{}, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}

	clip := pcm.NewClip(int(dec.SampleRate), int(dec.NumChans))
	clip.Samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		clip.Samples[i] = int16(v)
	}

	return clip, nil
}
