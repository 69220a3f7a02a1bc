package main

import (
	"fmt"
	"os"

	"github.com/lmittmann/tint"
	log "log/slog"

	"pluto/internal/audio"
)

func main() {
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{Level: log.LevelWarn})))

	devices, err := audio.ListDevices()
	if err != nil {
		log.Error("Failed to list devices", "err", err)
		os.Exit(1)
	}

	fmt.Println("Available audio devices:")
	for _, d := range devices {
		mark := " "
		if d.DefaultInput || d.DefaultOutput {
			mark = "*"
		}
		fmt.Printf("%s %2d: %-40s in=%d out=%d rate=%.0f\n",
			mark, d.Index, d.Name, d.Inputs, d.Outputs, d.DefaultRate)
	}
}
