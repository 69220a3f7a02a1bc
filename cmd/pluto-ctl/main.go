package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"pluto/internal/ipc"
	"pluto/internal/journal"
)

const usage = `usage: pluto-ctl [flags] <command> [args]

commands:
  stop          stop the daemon (it says goodbye first)
  fact          ask for a fun fact
  say <text>    speak the given text
  history       print recent cycles from the journal
  stats         print journal totals

flags:
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	dbPath := cli.StringP("journal", "j", "pluto.db", "Journal database (history, stats)")
	limit := cli.IntP("limit", "n", 10, "Cycles to show for history")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	var err error
	switch cmd := args[0]; cmd {
	case ipc.CmdStop, ipc.CmdFact:
		err = ipc.SendCommand(*socket, ipc.ControlMessage{Cmd: cmd})
	case ipc.CmdSay:
		err = ipc.SendCommand(*socket, ipc.ControlMessage{Cmd: cmd, Text: strings.Join(args[1:], " ")})
	case "history":
		err = history(*dbPath, *limit)
	case "stats":
		err = stats(*dbPath)
	default:
		cli.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "pluto-ctl:", err)
		os.Exit(1)
	}
}

func history(path string, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cycles, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}

	for _, c := range cycles {
		status := "ok"
		switch {
		case c.Failed():
			status = "error: " + c.Err
		case c.NoSpeech:
			status = "no speech"
		}
		fmt.Printf("%s  %-7s %-10s %q -> %q (%s, %s)\n",
			c.StartedAt.Format(time.DateTime), c.Source, c.Intent,
			c.Transcript, c.Response, c.Duration.Round(time.Millisecond), status)
	}
	return nil
}

func stats(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := j.Stats(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
