package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"pluto/internal/audio"
	"pluto/internal/bus"
	"pluto/internal/config"
	"pluto/internal/humanize"
	"pluto/internal/intent"
	"pluto/internal/ipc"
	"pluto/internal/journal"
	"pluto/internal/notify"
	"pluto/internal/pipeline"
	"pluto/internal/proxy"
	"pluto/internal/scenario"
	"pluto/internal/tts"
	"pluto/pkg/stt"
)

const busFlushTimeout = 3 * time.Second

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	cfgPath := cli.StringP("config", "c", "configs/config.yaml", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (debug|info|warn|error)")
	socket := cli.StringP("socket", "s", "", "Control socket path")
	cli.Parse()

	setupLogging(*logLevel)

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if *logLevel == "" {
		setupLogging(cfg.System.LogLevel)
	}
	if *socket != "" {
		cfg.Control.Socket = *socket
	}

	log.Debug("Loaded config", "path", *cfgPath)

	if err := run(cfg); err != nil {
		log.Error("Pluto stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("Bye")
}

func setupLogging(level string) {
	lvl, ok := logLevelMap[level]
	if !ok {
		lvl = log.LevelInfo
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: lvl,
	})))
}

func run(cfg *config.Config) error {
	ctx, cancel := shutdownContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.System.TempDir, 0o755); err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}

	dev, err := audio.Open(audio.Config{
		SampleRate:        cfg.Audio.SampleRate,
		Channels:          cfg.Audio.Channels,
		ChunkSize:         cfg.Audio.ChunkSize,
		DeviceIndex:       cfg.Audio.DeviceIndex,
		SilenceThreshold:  cfg.Audio.SilenceThreshold,
		SilenceDuration:   cfg.Audio.SilenceDuration,
		MaxRecordDuration: cfg.Audio.MaxRecordDuration,
		Players:           cfg.Audio.Players,
		PlayTimeout:       cfg.Audio.PlayTimeout,
	})
	if err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	// Shutdown closes it too; Close is idempotent
	defer dev.Close()

	log.Debug("Loaded audio device", "device", dev.Name())

	transcriber, closeSTT, err := newTranscriber(cfg)
	if err != nil {
		return err
	}
	defer closeSTT.Close()

	log.Debug("Loaded transcriber", "backend", cfg.STT.Backend)

	facts, err := scenario.LoadFacts(cfg.System.FunFactsPath)
	if err != nil {
		log.Warn("Failed to load fun facts", "path", cfg.System.FunFactsPath, "err", err)
	}

	rules := make([]intent.Rule, 0, len(cfg.Intents))
	for _, in := range cfg.Intents {
		rules = append(rules, intent.Rule{Name: in.Name, Keywords: in.Keywords})
	}
	detector := intent.NewDetector(rules)
	for _, name := range detector.Intents() {
		log.Debug("Loaded intent", "name", name, "keywords", detector.Keywords(name))
	}

	selector := scenario.NewSelector(scenario.Responses{
		Templates: cfg.Responses.Intents,
		Fallback:  cfg.Responses.Fallback,
		Startup:   cfg.Responses.Startup,
		Shutdown:  cfg.Responses.Shutdown,
		Error:     cfg.Responses.Error,
	}, facts)
	log.Debug("Loaded fun facts", "count", selector.FactCount())

	humanizer := humanize.New(cfg.HumanizerEnabled())
	log.Debug("Loaded humanizer", "enabled", humanizer.Enabled())

	deps := pipeline.Deps{
		Recorder:    dev,
		Transcriber: transcriber,
		Detector:    detector,
		Responder:   selector,
		Humanizer:   humanizer,
		Speaker:     newVoice(cfg, dev),
		Device:      dev,
	}

	if cfg.Audio.ChimePath != "" {
		deps.Cue = notify.NewChime(cfg.Audio.ChimePath)
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		deps.Observers = append(deps.Observers, j)
	}

	if cfg.Bus.URL != "" {
		pub, err := bus.NewPublisher(bus.Config{
			URL:       cfg.Bus.URL,
			Shard:     cfg.Bus.Shard,
			Reconnect: cfg.Bus.Reconnect,
		})
		if err != nil {
			return err
		}

		// outlives ctx so the goodbye cycle still gets published
		busCtx, busCancel := context.WithCancel(context.Background())
		busDone := make(chan struct{})
		go func() {
			pub.Run(busCtx)
			close(busDone)
		}()
		defer func() {
			busCancel()
			select {
			case <-busDone:
			case <-time.After(busFlushTimeout):
				log.Warn("Bus did not flush in time")
			}
		}()

		deps.Observers = append(deps.Observers, pub)
	}

	orch, err := pipeline.New(deps, pipeline.Options{
		ListenDuration: cfg.ListenDuration(),
		TempDir:        cfg.System.TempDir,
	})
	if err != nil {
		return err
	}

	srv, err := ipc.StartServer(cfg.Control.Socket, func(msg ipc.ControlMessage) error {
		switch msg.Cmd {
		case ipc.CmdStop:
			log.Info("Stop requested")
			cancel()
			return nil
		case ipc.CmdFact:
			return orch.Submit(pipeline.Request{Kind: pipeline.RequestFact})
		case ipc.CmdSay:
			return orch.Submit(pipeline.Request{Kind: pipeline.RequestSay, Text: msg.Text})
		}
		return fmt.Errorf("unknown command %q", msg.Cmd)
	})
	if err != nil {
		log.Warn("Control socket disabled", "err", err)
	} else {
		defer srv.Close()
	}

	log.Info("Boot up - successful")
	return orch.Run(ctx)
}

func newTranscriber(cfg *config.Config) (pipeline.Transcriber, io.Closer, error) {
	switch cfg.STT.Backend {
	case config.BackendWhisperCLI:
		c := stt.NewCLI(cfg.STT.CLIPath, cfg.STT.ModelPath, cfg.STT.Language)
		c.Threads = cfg.STT.Threads
		c.Timeout = cfg.STT.Timeout
		return c, nopCloser{}, nil

	case config.BackendOpenAI:
		var httpClient *http.Client
		if cfg.STT.OpenAI.Proxy != "" {
			hc, err := proxy.NewSocksClient(cfg.STT.OpenAI.Proxy, cfg.STT.Timeout)
			if err != nil {
				return nil, nil, fmt.Errorf("socks proxy %s: %w", cfg.STT.OpenAI.Proxy, err)
			}
			httpClient = hc
		}
		c, err := stt.NewCloud(cfg.STT.OpenAI.APIKey, cfg.STT.OpenAI.Model, cfg.STT.Language, httpClient)
		if err != nil {
			return nil, nil, err
		}
		return c, nopCloser{}, nil

	default:
		w, err := stt.NewWhisper(cfg.STT.ModelPath, stt.Options{
			Language: cfg.STT.Language,
			Threads:  cfg.STT.Threads,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init whisper: %w", err)
		}
		return w, w, nil
	}
}

func newVoice(cfg *config.Config, dev *audio.Device) *tts.Voice {
	piper := tts.NewPiper(tts.PiperConfig{
		Binary:      cfg.TTS.Binary,
		ModelPath:   cfg.TTS.ModelPath,
		ConfigPath:  cfg.TTS.ConfigPath,
		SpeakerID:   cfg.TTS.SpeakerID,
		NoiseScale:  cfg.TTS.NoiseScale,
		LengthScale: cfg.TTS.LengthScale,
		SampleRate:  cfg.TTS.SampleRate,
		Timeout:     cfg.TTS.Timeout,
	})

	log.Debug("Loaded piper", "model", cfg.TTS.ModelPath, "rate", piper.SampleRate())

	var opts []tts.VoiceOption
	if d := cfg.Audio.Duck; d.Enabled {
		selfNames := append([]string{"pluto"}, cfg.Audio.Players...)
		opts = append(opts, tts.WithDucker(audio.NewDucker(selfNames, d.MinVolume), d.Factor, d.Fade))
	}
	if cfg.TTS.EspeakFallback {
		espeak := tts.NewEspeak(cfg.TTS.EspeakVoice)
		if !espeak.Available() {
			log.Warn("espeak fallback requested but not built in (build with -tags espeak)")
		}
		opts = append(opts, tts.WithFallback(espeak))
	}

	return tts.NewVoice(piper, dev, cfg.System.TempDir, opts...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
