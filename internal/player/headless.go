//go:build headless

package player

import (
	"io"
)

// Player discards the audio stream.
type Player struct {
	source  io.Reader
	playing bool
}

// New returns a player with no host output.
func New(source io.Reader) (p *Player, err error) {
	p = &Player{source: source}
	return
}

// Play marks the player as running. No samples are consumed.
func (p *Player) Play() {
	p.playing = true
}

func (p *Player) Playing() bool {
	return p.playing
}

func (p *Player) Close() error {
	p.playing = false
	return nil
}
