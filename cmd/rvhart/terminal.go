package main

import (
	"io"
	"log"
	"os"

	"golang.org/x/term"
)

// Terminal hands host input bytes to the run loop.
type Terminal struct {
	Input <-chan byte

	fd    int
	state *term.State
}

// readInput copies r to a channel, one byte at a time, until r fails.
func readInput(r io.Reader) <-chan byte {
	ch := make(chan byte, 256)

	go func() {
		defer close(ch)

		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				ch <- b
			}
			if err != nil {
				return
			}
		}
	}()

	return ch
}

// OpenTerminal starts reading stdin. When raw is set and stdin is a
// terminal, it is switched to raw mode until Close.
func OpenTerminal(raw bool) (tty *Terminal, err error) {
	tty = &Terminal{fd: int(os.Stdin.Fd())}

	if raw && term.IsTerminal(tty.fd) {
		tty.state, err = term.MakeRaw(tty.fd)
		if err != nil {
			tty = nil
			return
		}
	}

	tty.Input = readInput(os.Stdin)

	return
}

// Raw is true while the terminal is in raw mode.
func (tty *Terminal) Raw() bool {
	return tty.state != nil
}

// Close restores the terminal mode.
func (tty *Terminal) Close() {
	if tty.state == nil {
		return
	}

	err := term.Restore(tty.fd, tty.state)
	if err != nil {
		log.Printf("rvhart: terminal: %v", err)
	}
	tty.state = nil
}
