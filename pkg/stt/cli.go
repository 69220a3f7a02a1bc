package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// annotationRe matches whisper.cpp non-speech markers like [BLANK_AUDIO] or [Music].
var annotationRe = regexp.MustCompile(`\[[^\]]*\]`)

// CLI runs the whisper.cpp command line binary.
type CLI struct {
	ExecPath  string
	ModelPath string
	Language  string
	Threads   int
	Timeout   time.Duration
}

func NewCLI(execPath, modelPath, language string) *CLI {
	return &CLI{
		ExecPath:  execPath,
		ModelPath: modelPath,
		Language:  language,
		Timeout:   60 * time.Second,
	}
}

// Transcribe runs whisper.cpp on audioFile and returns recognized text.
func (c *CLI) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if _, err := os.Stat(audioFile); err != nil {
		return "", fmt.Errorf("%w: %s", ErrAudioMissing, audioFile)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := []string{"-m", c.ModelPath, "-f", audioFile, "-nt", "-np"}
	if c.Language != "" {
		args = append(args, "-l", c.Language)
	}
	if c.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(c.Threads))
	}

	cmd := exec.CommandContext(ctx, c.ExecPath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("whisper cli: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whisper cli exited %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("whisper cli: %w", err)
	}

	return cleanTranscript(out.String()), nil
}

func cleanTranscript(s string) string {
	s = annotationRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
