//go:build !headless

// Package player plays the emulated audio device on the host.
package player

import (
	"io"

	"github.com/ebitengine/oto/v3"

	rvio "github.com/ezrec/rvhart/io"
)

// Player streams float32LE stereo frames from a source to the host audio
// output.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
}

// New opens the host audio output for source. Only one player may be
// opened per process.
func New(source io.Reader) (p *Player, err error) {
	opts := &oto.NewContextOptions{
		SampleRate:   rvio.AUDIO_SAMPLE_RATE,
		ChannelCount: rvio.AUDIO_CHANNELS,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return
	}
	<-ready

	p = &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(source),
	}

	return
}

// Play starts playback.
func (p *Player) Play() {
	p.player.Play()
}

// Playing is true while the output is running.
func (p *Player) Playing() bool {
	return p.player.IsPlaying()
}

// Close stops playback.
func (p *Player) Close() error {
	return p.player.Close()
}
