package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/pluto.sock"

const (
	CmdStop = "stop"
	CmdFact = "fact"
	CmdSay  = "say"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (m ControlMessage) Validate() error {
	switch m.Cmd {
	case CmdStop, CmdFact:
		return nil
	case CmdSay:
		if m.Text == "" {
			return errors.New("say needs text")
		}
		return nil
	case "":
		return errors.New("empty command")
	}
	return fmt.Errorf("unknown command %q", m.Cmd)
}

// StartServer listens on a unix socket and hands every decoded message to
// handler. Close the returned listener to stop serving.
func StartServer(path string, handler func(ControlMessage) error) (io.Closer, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Warn("Control accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	log.Info("Control socket listening", "path", path)
	return ln, nil
}

func handleConn(conn net.Conn, handler func(ControlMessage) error) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(reply{Error: err.Error()})
		return
	}

	err := msg.Validate()
	if err == nil {
		err = handler(msg)
	}

	res := reply{OK: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(res)
}

// SendCommand delivers msg to the daemon and waits for its acknowledgement.
func SendCommand(path string, msg ControlMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var res reply
	if err := json.NewDecoder(conn).Decode(&res); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("daemon: %s", res.Error)
	}
	return nil
}
