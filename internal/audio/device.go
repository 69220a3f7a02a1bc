package audio

import (
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

type Config struct {
	SampleRate  int
	Channels    int
	ChunkSize   int
	DeviceIndex int // -1 = no preference

	SilenceThreshold  float64
	SilenceDuration   time.Duration
	MaxRecordDuration time.Duration

	Players     []string
	PlayTimeout time.Duration
}

// Device owns the portaudio library handle and the selected hardware device.
// Open acquires it, Close releases it; nothing else initializes portaudio.
type Device struct {
	cfg  Config
	info *portaudio.DeviceInfo // nil = system default

	closeOnce sync.Once
}

func Open(cfg Config) (*Device, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.ChunkSize <= 0 {
		return nil, errors.New("invalid audio format")
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	d := &Device{cfg: cfg}

	info, err := selectDevice(cfg.DeviceIndex)
	if err != nil {
		log.Warn("Device enumeration failed, using default device", "err", err)
	}
	d.info = info

	if info != nil {
		log.Info("Using audio device", "index", info.Index, "name", info.Name)
	} else {
		log.Warn("No preferred device found, using default device", "wanted", cfg.DeviceIndex)
	}

	return d, nil
}

// Close releases portaudio. Safe to call more than once.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = portaudio.Terminate()
		log.Info("Audio device released")
	})
	return err
}

// Name describes the selected device.
func (d *Device) Name() string {
	if d.info == nil {
		return "default"
	}
	return d.info.Name
}

// selectDevice prefers the configured index, then any device with both input
// and output. A nil result means the system default.
func selectDevice(preferred int) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	if preferred >= 0 {
		for _, dev := range devices {
			if dev.Index == preferred && (dev.MaxInputChannels > 0 || dev.MaxOutputChannels > 0) {
				return dev, nil
			}
		}
		log.Warn("Preferred audio device unavailable, searching for any usable device", "index", preferred)
	}

	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}

	return nil, nil
}

type DeviceSummary struct {
	Index         int
	Name          string
	Inputs        int
	Outputs       int
	DefaultRate   float64
	DefaultInput  bool
	DefaultOutput bool
}

// ListDevices enumerates devices. portaudio reference counts initialization,
// so this works with or without an open Device.
func ListDevices() ([]DeviceSummary, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	out := make([]DeviceSummary, 0, len(devices))
	for _, dev := range devices {
		out = append(out, DeviceSummary{
			Index:         dev.Index,
			Name:          dev.Name,
			Inputs:        dev.MaxInputChannels,
			Outputs:       dev.MaxOutputChannels,
			DefaultRate:   dev.DefaultSampleRate,
			DefaultInput:  defIn != nil && defIn.Index == dev.Index,
			DefaultOutput: defOut != nil && defOut.Index == dev.Index,
		})
	}

	return out, nil
}
