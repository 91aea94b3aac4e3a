// Package preview plays engine audio through the system output device for
// prelistening, outside any host-driven render callback.
package preview

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// oto supports a single context per process; hold it for the lifetime of
// the first player and hand it to every later one.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("opening audio device: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		log.Debug().Int("sampleRate", sampleRate).Int("channels", channels).Msg("audio device ready")
	})
	return otoCtx, otoErr
}

// Player drives one preview at a time through the shared output device.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// NewPlayer opens the output device at the given format. The first call
// fixes the device format for the process.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	ctx, err := sharedContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &Player{ctx: ctx}, nil
}

// Play stops any running preview and starts streaming r, a signed 16-bit
// little-endian interleaved stream at the device format.
func (p *Player) Play(r io.Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		p.player.Close()
	}
	p.player = p.ctx.NewPlayer(r)
	p.player.Play()
}

// Stop halts the current preview, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
}

// Playing reports whether a preview is currently audible.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Close stops playback. The device context itself stays open for the
// process lifetime.
func (p *Player) Close() error {
	p.Stop()
	return nil
}
