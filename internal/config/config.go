package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	System    SystemConfig    `yaml:"system"`
	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	TTS       TTSConfig       `yaml:"tts"`
	Humanizer HumanizerConfig `yaml:"humanizer"`
	Intents   IntentTable     `yaml:"intents"`
	Responses ResponseConfig  `yaml:"responses"`
	Control   ControlConfig   `yaml:"control"`
	Journal   JournalConfig   `yaml:"journal"`
	Bus       BusConfig       `yaml:"bus"`
}

type SystemConfig struct {
	LogLevel     string `yaml:"log_level"`
	TempDir      string `yaml:"temp_dir"`
	FunFactsPath string `yaml:"fun_facts_path"`
}

type AudioConfig struct {
	SampleRate  int `yaml:"sample_rate"`
	Channels    int `yaml:"channels"`
	ChunkSize   int `yaml:"chunk_size"`
	DeviceIndex int `yaml:"device_index"` // -1 = no preference

	// Mean absolute amplitude, int16 units.
	SilenceThreshold  float64       `yaml:"silence_threshold"`
	SilenceDuration   time.Duration `yaml:"silence_duration"`
	RecordDuration    time.Duration `yaml:"record_duration"` // 0 = stop on silence
	MaxRecordDuration time.Duration `yaml:"max_record_duration"`

	Players     []string      `yaml:"players"`
	PlayTimeout time.Duration `yaml:"play_timeout"`
	ChimePath   string        `yaml:"chime_path"`
	Duck        DuckConfig    `yaml:"duck"`
}

type DuckConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Factor    float64       `yaml:"factor"`
	MinVolume int           `yaml:"min_volume"`
	Fade      time.Duration `yaml:"fade"`
}

const (
	BackendWhisper    = "whisper"
	BackendWhisperCLI = "whisper-cli"
	BackendOpenAI     = "openai"
)

type STTConfig struct {
	Backend   string        `yaml:"backend"`
	ModelPath string        `yaml:"model_path"`
	CLIPath   string        `yaml:"cli_path"`
	Language  string        `yaml:"language"`
	Threads   int           `yaml:"threads"`
	Timeout   time.Duration `yaml:"timeout"`
	OpenAI    OpenAIConfig  `yaml:"openai"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	Proxy  string `yaml:"proxy"` // SOCKS5 host:port, empty = direct
}

type TTSConfig struct {
	Binary      string        `yaml:"binary"`
	ModelPath   string        `yaml:"model_path"`
	ConfigPath  string        `yaml:"config_path"`
	SpeakerID   *int          `yaml:"speaker_id"`
	NoiseScale  float64       `yaml:"noise_scale"`
	LengthScale float64       `yaml:"length_scale"`
	SampleRate  int           `yaml:"sample_rate"` // 0 = read from model config
	Timeout     time.Duration `yaml:"timeout"`

	EspeakFallback bool   `yaml:"espeak_fallback"`
	EspeakVoice    string `yaml:"espeak_voice"`
}

type HumanizerConfig struct {
	Enabled *bool `yaml:"enabled"`
}

type ResponseConfig struct {
	Fallback string            `yaml:"fallback"`
	Startup  string            `yaml:"startup"`
	Shutdown string            `yaml:"shutdown"`
	Error    string            `yaml:"error"`
	Intents  map[string]string `yaml:"intents"`
}

type ControlConfig struct {
	Socket string `yaml:"socket"`
}

type JournalConfig struct {
	Path string `yaml:"path"` // empty disables the journal
}

type BusConfig struct {
	URL       string        `yaml:"url"` // empty disables publishing
	Shard     string        `yaml:"shard"`
	Reconnect time.Duration `yaml:"reconnect"`
}

// Load reads the YAML document at path, applies defaults and environment
// overrides, and validates the result. Relative paths in the document are
// taken relative to the directory holding it; paths from the environment are
// left as given.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := parse(raw, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a document without resolving relative paths.
func Parse(raw []byte) (*Config, error) {
	return parse(raw, "")
}

func parse(raw []byte, dir string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if dir != "" {
		cfg.resolvePaths(dir)
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		System: SystemConfig{
			LogLevel:     "info",
			TempDir:      "temp",
			FunFactsPath: "data/fun_facts.txt",
		},
		Audio: AudioConfig{
			SampleRate:        16000,
			Channels:          1,
			ChunkSize:         1024,
			DeviceIndex:       -1,
			SilenceThreshold:  500,
			SilenceDuration:   1500 * time.Millisecond,
			RecordDuration:    3500 * time.Millisecond,
			MaxRecordDuration: 4500 * time.Millisecond,
			Players:           []string{"aplay"},
			PlayTimeout:       30 * time.Second,
			Duck: DuckConfig{
				Factor:    0.3,
				MinVolume: 10,
				Fade:      300 * time.Millisecond,
			},
		},
		STT: STTConfig{
			Backend:  BackendWhisper,
			CLIPath:  "whisper-cli",
			Language: "en",
			Timeout:  60 * time.Second,
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
		},
		TTS: TTSConfig{
			Binary:      "piper",
			NoiseScale:  0.667,
			LengthScale: 1.0,
			Timeout:     30 * time.Second,
			EspeakVoice: "en",
		},
		Control: ControlConfig{
			Socket: "/tmp/pluto.sock",
		},
		Bus: BusConfig{
			Shard:     "PLUTO",
			Reconnect: 5 * time.Second,
		},
	}
}

// HumanizerEnabled defaults to true when the key is absent.
func (c *Config) HumanizerEnabled() bool {
	return c.Humanizer.Enabled == nil || *c.Humanizer.Enabled
}

// ListenDuration is the fixed recording length, or 0 for silence-terminated recording.
func (c *Config) ListenDuration() time.Duration {
	return c.Audio.RecordDuration
}

func (c *Config) applyEnv() {
	c.System.LogLevel = getEnvString("PLUTO_LOG_LEVEL", c.System.LogLevel)
	c.Audio.DeviceIndex = getEnvInt("PLUTO_AUDIO_DEVICE", c.Audio.DeviceIndex)
	c.STT.Backend = getEnvString("PLUTO_STT_BACKEND", c.STT.Backend)
	c.STT.ModelPath = getEnvString("PLUTO_STT_MODEL", c.STT.ModelPath)
	c.STT.OpenAI.APIKey = getEnvString("OPENAI_API_KEY", c.STT.OpenAI.APIKey)
	c.STT.OpenAI.Proxy = getEnvString("PLUTO_SOCKS_PROXY", c.STT.OpenAI.Proxy)
	c.TTS.ModelPath = getEnvString("PLUTO_TTS_MODEL", c.TTS.ModelPath)
	c.TTS.Binary = getEnvString("PLUTO_PIPER_BIN", c.TTS.Binary)
	c.Journal.Path = getEnvString("PLUTO_JOURNAL", c.Journal.Path)
	c.Bus.URL = getEnvString("PLUTO_BUS_URL", c.Bus.URL)
	c.Audio.RecordDuration = getEnvDuration("PLUTO_RECORD_DURATION", c.Audio.RecordDuration)
}

func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	a := c.Audio
	if a.SampleRate <= 0 {
		fail("audio.sample_rate must be positive: %d", a.SampleRate)
	}
	if a.Channels < 1 || a.Channels > 2 {
		fail("audio.channels must be 1 or 2: %d", a.Channels)
	}
	if a.ChunkSize <= 0 {
		fail("audio.chunk_size must be positive: %d", a.ChunkSize)
	}
	if a.SilenceThreshold < 0 {
		fail("audio.silence_threshold must not be negative")
	}
	if a.RecordDuration < 0 {
		fail("audio.record_duration must not be negative")
	}
	if a.RecordDuration == 0 && a.SilenceDuration <= 0 {
		fail("audio.silence_duration must be positive when recording stops on silence")
	}
	if a.MaxRecordDuration <= 0 {
		fail("audio.max_record_duration must be positive")
	}
	if a.PlayTimeout <= 0 {
		fail("audio.play_timeout must be positive")
	}
	if a.Duck.Enabled && (a.Duck.Factor < 0 || a.Duck.Factor > 1) {
		fail("audio.duck.factor must be within [0, 1]: %g", a.Duck.Factor)
	}

	switch c.STT.Backend {
	case BackendWhisper:
		if c.STT.ModelPath == "" {
			fail("stt.model_path is required for the whisper backend")
		}
	case BackendWhisperCLI:
		if c.STT.ModelPath == "" || c.STT.CLIPath == "" {
			fail("stt.model_path and stt.cli_path are required for the whisper-cli backend")
		}
	case BackendOpenAI:
		if c.STT.OpenAI.APIKey == "" {
			fail("OPENAI_API_KEY (or stt.openai.api_key) is required for the openai backend")
		}
	default:
		fail("unknown stt.backend %q", c.STT.Backend)
	}

	if c.TTS.Binary == "" {
		fail("tts.binary is required")
	}
	if c.TTS.ModelPath == "" {
		fail("tts.model_path is required")
	}
	if c.TTS.Timeout <= 0 {
		fail("tts.timeout must be positive")
	}

	if len(c.Intents) == 0 {
		fail("intents: at least one intent is required")
	}
	for _, in := range c.Intents {
		if len(in.Keywords) == 0 {
			fail("intents.%s: at least one keyword is required", in.Name)
		}
		for _, k := range in.Keywords {
			if strings.TrimSpace(k) == "" {
				fail("intents.%s: empty keyword", in.Name)
			}
		}
	}

	if c.Responses.Fallback == "" {
		fail("responses.fallback is required")
	}

	if c.System.TempDir == "" {
		fail("system.temp_dir is required")
	}

	return errors.Join(errs...)
}

// resolvePaths makes relative file paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	resolve(&c.System.TempDir)
	resolve(&c.System.FunFactsPath)
	resolve(&c.STT.ModelPath)
	resolve(&c.TTS.ModelPath)
	resolve(&c.TTS.ConfigPath)
	resolve(&c.Audio.ChimePath)
	resolve(&c.Journal.Path)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
