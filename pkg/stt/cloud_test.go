package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transcriptionRequest struct {
	path  string
	model string
	lang  string
	audio []byte
}

func fakeOpenAI(t *testing.T, status int, body string) (*Cloud, <-chan transcriptionRequest) {
	t.Helper()

	seen := make(chan transcriptionRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := transcriptionRequest{path: r.URL.Path}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			req.model = r.FormValue("model")
			req.lang = r.FormValue("language")
			if f, _, err := r.FormFile("file"); err == nil {
				req.audio, _ = io.ReadAll(f)
				f.Close()
			}
		}
		seen <- req

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := NewCloud("sk-test", "whisper-1", "en", srv.Client(),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return c, seen
}

func TestCloudTranscribe(t *testing.T) {
	c, seen := fakeOpenAI(t, http.StatusOK, `{"text": "  hello pluto \n"}`)

	text, err := c.Transcribe(context.Background(), sampleFile(t))
	require.NoError(t, err)
	assert.Equal(t, "hello pluto", text)

	req := <-seen
	assert.Equal(t, "/v1/audio/transcriptions", req.path)
	assert.Equal(t, "whisper-1", req.model)
	assert.Equal(t, "en", req.lang)
	assert.NotEmpty(t, req.audio)
}

func TestCloudTranscribeServerError(t *testing.T) {
	c, _ := fakeOpenAI(t, http.StatusInternalServerError, `{"error": {"message": "overloaded", "type": "server_error"}}`)

	_, err := c.Transcribe(context.Background(), sampleFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud transcription")
	assert.NotErrorIs(t, err, ErrAudioMissing)
}

func TestCloudTranscribeMissingFile(t *testing.T) {
	c, seen := fakeOpenAI(t, http.StatusOK, `{"text": "never"}`)

	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
	assert.ErrorIs(t, err, ErrAudioMissing)
	assert.Empty(t, seen, "no request for a missing file")
}

func TestCloudTranscribeUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	c, _ := fakeOpenAI(t, http.StatusOK, `{"text": "never"}`)

	path := sampleFile(t)
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := c.Transcribe(context.Background(), path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAudioMissing)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestNewCloudRequiresKey(t *testing.T) {
	_, err := NewCloud("", "", "", nil)
	assert.Error(t, err)
}
