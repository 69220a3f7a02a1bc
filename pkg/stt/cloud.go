package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Cloud transcribes through the OpenAI audio transcription endpoint.
type Cloud struct {
	client   openai.Client
	model    string
	language string
}

// NewCloud builds a cloud transcriber. httpClient may be nil; extra request
// options are applied after the key and client.
func NewCloud(apiKey, model, language string, httpClient *http.Client, extra ...option.RequestOption) (*Cloud, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not set")
	}
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)

	return &Cloud{
		client:   openai.NewClient(opts...),
		model:    model,
		language: language,
	}, nil
}

func (c *Cloud) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrAudioMissing, path)
	}
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(c.model),
	}
	if c.language != "" && c.language != "auto" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("cloud transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
