package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"pluto/pkg/audioconv"
)

// piper's own default for most voices
const defaultSampleRate = 22050

var (
	ErrEmptyText    = errors.New("tts: empty text")
	ErrNotInstalled = errors.New("tts: synthesizer binary not found")
	ErrTimeout      = errors.New("tts: synthesis timed out")
)

// ExitError reports a non-zero exit of the synthesizer process.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("tts: synthesizer exited with code %d", e.Code)
	}
	return fmt.Sprintf("tts: synthesizer exited with code %d: %s", e.Code, e.Stderr)
}

type PiperConfig struct {
	Binary      string
	ModelPath   string
	ConfigPath  string
	SpeakerID   *int
	NoiseScale  float64
	LengthScale float64
	SampleRate  int // 0 = read from ConfigPath, falling back to 22050
	Timeout     time.Duration
}

// Piper renders text with the piper neural TTS binary.
type Piper struct {
	cfg        PiperConfig
	sampleRate int
}

func NewPiper(cfg PiperConfig) *Piper {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = modelSampleRate(cfg.ConfigPath)
	}

	if _, err := exec.LookPath(cfg.Binary); err != nil {
		log.Warn("Piper binary not found, synthesis will fail", "binary", cfg.Binary)
	}

	return &Piper{cfg: cfg, sampleRate: rate}
}

func (p *Piper) SampleRate() int { return p.sampleRate }

// Synthesize renders text into a wav file at outPath.
func (p *Piper) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.Binary, p.args()...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	log.Debug("Running piper", "args", cmd.Args)

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrNotInstalled, p.cfg.Binary)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w after %s", ErrTimeout, p.cfg.Timeout)
		case ctx.Err() != nil:
			return ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return fmt.Errorf("run piper: %w", err)
	}

	if err := audioconv.RawToWAV(stdout.Bytes(), p.sampleRate, outPath); err != nil {
		return fmt.Errorf("frame piper output: %w", err)
	}

	log.Info("Speech synthesized", "path", outPath, "bytes", stdout.Len())
	return nil
}

func (p *Piper) args() []string {
	args := []string{"--model", p.cfg.ModelPath, "--output-raw"}

	if p.cfg.ConfigPath != "" {
		if _, err := os.Stat(p.cfg.ConfigPath); err == nil {
			args = append(args, "--config", p.cfg.ConfigPath)
		}
	}
	if p.cfg.SpeakerID != nil {
		args = append(args, "--speaker", strconv.Itoa(*p.cfg.SpeakerID))
	}
	if p.cfg.NoiseScale > 0 {
		args = append(args, "--noise_scale", strconv.FormatFloat(p.cfg.NoiseScale, 'f', -1, 64))
	}
	if p.cfg.LengthScale > 0 {
		args = append(args, "--length_scale", strconv.FormatFloat(p.cfg.LengthScale, 'f', -1, 64))
	}

	return args
}

// modelSampleRate reads audio.sample_rate from a piper voice config.
func modelSampleRate(configPath string) int {
	if configPath == "" {
		return defaultSampleRate
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return defaultSampleRate
	}

	if r := gjson.GetBytes(raw, "audio.sample_rate"); r.Exists() && r.Int() > 0 {
		return int(r.Int())
	}
	return defaultSampleRate
}
