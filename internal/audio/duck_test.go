package audio

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pactlListing = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: mono: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "aplay"
Sink Input #bogus
	Volume: mono: 65536 / 100% / 0.00 dB
`

type fakePactl struct {
	mu      sync.Mutex
	listing string
	sets    []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if args[0] == "list" {
		return []byte(f.listing), nil
	}
	f.sets = append(f.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlListing)

	require.Len(t, got, 2)
	assert.Equal(t, sinkInput{ID: 41, Volume: 80, AppName: "Firefox"}, got[0])
	assert.Equal(t, sinkInput{ID: 42, Volume: 100, AppName: "aplay"}, got[1])
	assert.Nil(t, parseSinkInputs("nothing here"))
}

func TestDuckerDucksOthersAndRestores(t *testing.T) {
	p := &fakePactl{listing: pactlListing}
	d := NewDucker([]string{"aplay"}, 10)
	d.pactl = p.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.25, 0))
	assert.Equal(t, []string{"41 20%"}, p.sets)

	// second duck is a no-op
	require.NoError(t, d.DuckOthers(context.Background(), 0.25, 0))
	assert.Len(t, p.sets, 1)

	p.listing = strings.Replace(pactlListing, "80%", "20%", 1)
	require.NoError(t, d.UnduckOthers(context.Background(), 0))
	assert.Equal(t, []string{"41 20%", "41 80%"}, p.sets)

	// nothing ducked anymore
	require.NoError(t, d.UnduckOthers(context.Background(), 0))
	assert.Len(t, p.sets, 2)
}

func TestDuckerRespectsMinVolume(t *testing.T) {
	p := &fakePactl{listing: pactlListing}
	d := NewDucker(nil, 50)
	d.pactl = p.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.1, 0))
	assert.ElementsMatch(t, []string{"41 50%", "42 50%"}, p.sets)
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0, clampVolume(-5))
	assert.Equal(t, 150, clampVolume(400))
	assert.Equal(t, 70, clampVolume(70))
}
