package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"pluto/pkg/audioconv"
)

// Play plays a wav file. Each configured player command is tried in order;
// if all fail the file is streamed to the device through portaudio.
func (d *Device) Play(ctx context.Context, path string) error {
	for _, player := range d.cfg.Players {
		err := runPlayer(ctx, player, path, d.cfg.PlayTimeout)
		if err == nil {
			log.Info("Playback finished", "player", player)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Player failed", "player", player, "err", err)
	}

	return d.playStream(ctx, path)
}

func runPlayer(ctx context.Context, player, path string, timeout time.Duration) error {
	fields := strings.Fields(player)
	if len(fields) == 0 {
		return errors.New("empty player command")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}

	return nil
}

func (d *Device) playStream(ctx context.Context, path string) error {
	clip, err := audioconv.ReadWAV(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	log.Info("Playing through audio device", "path", path, "channels", clip.Channels, "rate", clip.SampleRate)

	buf := make([]int16, d.cfg.ChunkSize*clip.Channels)

	stream, err := d.openOutput(buf, clip.Channels, clip.SampleRate)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(clip.Samples); off += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(buf, clip.Samples[off:])
		clear(buf[n:])

		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	log.Info("Playback finished", "player", "portaudio")
	return nil
}

func (d *Device) openOutput(buf []int16, channels, rate int) (*portaudio.Stream, error) {
	if d.info != nil && d.info.MaxOutputChannels >= channels {
		p := portaudio.HighLatencyParameters(nil, d.info)
		p.Output.Channels = channels
		p.SampleRate = float64(rate)
		p.FramesPerBuffer = d.cfg.ChunkSize

		stream, err := portaudio.OpenStream(p, buf)
		if err == nil {
			return stream, nil
		}
		log.Warn("Failed to open output on selected device, trying default", "device", d.info.Name, "err", err)
	}

	return portaudio.OpenDefaultStream(0, channels, float64(rate), d.cfg.ChunkSize, buf)
}
