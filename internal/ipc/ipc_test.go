package ipc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	// unix socket paths are limited to ~100 bytes, t.TempDir can be longer
	dir, err := os.MkdirTemp("", "pluto")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestSendCommandRoundTrip(t *testing.T) {
	path := socketPath(t)

	got := make(chan ControlMessage, 1)
	srv, err := StartServer(path, func(m ControlMessage) error {
		got <- m
		return nil
	})
	require.NoError(t, err)
	defer srv.Close()

	require.NoError(t, SendCommand(path, ControlMessage{Cmd: CmdSay, Text: "hi"}))
	assert.Equal(t, ControlMessage{Cmd: CmdSay, Text: "hi"}, <-got)
}

func TestSendCommandReportsHandlerError(t *testing.T) {
	path := socketPath(t)

	srv, err := StartServer(path, func(ControlMessage) error {
		return errors.New("busy")
	})
	require.NoError(t, err)
	defer srv.Close()

	err = SendCommand(path, ControlMessage{Cmd: CmdFact})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}

func TestStartServerReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := StartServer(path, func(ControlMessage) error { return nil })
	require.NoError(t, err)
	require.NoError(t, srv.Close())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ControlMessage{Cmd: CmdStop}.Validate())
	assert.Error(t, ControlMessage{Cmd: CmdSay}.Validate())
	assert.Error(t, ControlMessage{}.Validate())
	assert.Error(t, ControlMessage{Cmd: "dance"}.Validate())
}

func TestSendCommandNoDaemon(t *testing.T) {
	assert.Error(t, SendCommand(socketPath(t), ControlMessage{Cmd: CmdStop}))
}
