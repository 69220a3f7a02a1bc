package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"pluto/pkg/pcm"
)

// Record captures a clip from the device. A positive duration records for that
// long. A zero duration stops on silence after speech, capped at
// MaxRecordDuration; if no speech is heard the returned clip is empty.
func (d *Device) Record(ctx context.Context, duration time.Duration) (pcm.Clip, error) {
	cfg := d.cfg
	buf := make([]int16, cfg.ChunkSize*cfg.Channels)

	stream, err := d.openInput(buf)
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return pcm.Clip{}, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	log.Info("Recording started", "duration", duration)

	clip := pcm.NewClip(cfg.SampleRate, cfg.Channels)
	read := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// overflow just means we lost a few frames
		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("read input stream: %w", err)
		}
		clip.Samples = append(clip.Samples, buf...)
		return nil
	}

	if duration > 0 {
		chunks := int(float64(cfg.SampleRate) / float64(cfg.ChunkSize) * duration.Seconds())
		for i := 0; i < chunks; i++ {
			if err := read(); err != nil {
				return pcm.Clip{}, err
			}
		}

		log.Info("Recording stopped", "length", clip.Duration())
		return clip, nil
	}

	gate := pcm.NewSilenceGate(cfg.SilenceThreshold, cfg.SilenceDuration, cfg.MaxRecordDuration, cfg.SampleRate, cfg.ChunkSize)
	for {
		if err := read(); err != nil {
			return pcm.Clip{}, err
		}
		if gate.Feed(buf) {
			break
		}
	}

	if gate.HitCeiling() {
		log.Info("Maximum recording time reached", "max", cfg.MaxRecordDuration, "chunks", gate.Chunks())
	}

	if !gate.SpeechDetected() {
		log.Info("No speech detected", "chunks", gate.Chunks())
		return pcm.NewClip(cfg.SampleRate, cfg.Channels), nil
	}

	log.Info("Recording stopped", "length", clip.Duration())
	return clip, nil
}

func (d *Device) openInput(buf []int16) (*portaudio.Stream, error) {
	cfg := d.cfg

	if d.info != nil && d.info.MaxInputChannels > 0 {
		p := portaudio.LowLatencyParameters(d.info, nil)
		p.Input.Channels = cfg.Channels
		p.SampleRate = float64(cfg.SampleRate)
		p.FramesPerBuffer = cfg.ChunkSize

		stream, err := portaudio.OpenStream(p, buf)
		if err == nil {
			return stream, nil
		}
		log.Error("Failed to open input on selected device, trying default", "device", d.info.Name, "err", err)
	}

	return portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.ChunkSize, buf)
}
