package gdb

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	packetStart     = '$'
	packetEnd       = '#'
	packetEscape    = '}'
	packetInterrupt = 0x03
	packetAck       = '+'
	packetNak       = '-'
)

// checksum is the modulo 256 sum of the payload bytes.
func checksum(payload string) (sum uint8) {
	for n := range len(payload) {
		sum += payload[n]
	}
	return
}

// frame wraps a payload as a packet.
func frame(payload string) string {
	return fmt.Sprintf("%c%s%c%02x", packetStart, payload, packetEnd, checksum(payload))
}

// unescape removes the binary escapes from a payload.
func unescape(raw string) string {
	if !strings.ContainsRune(raw, packetEscape) {
		return raw
	}

	var sb strings.Builder
	for n := 0; n < len(raw); n++ {
		if raw[n] == packetEscape && n+1 < len(raw) {
			n++
			sb.WriteByte(raw[n] ^ 0x20)
		} else {
			sb.WriteByte(raw[n])
		}
	}

	return sb.String()
}

// conn is a packet connection to a debugger.
type conn struct {
	r     *bufio.Reader
	w     io.Writer
	noAck bool   // Set once the debugger has disabled acknowledgements.
	last  string // Last packet sent, for retransmission.
}

func newConn(rw io.ReadWriter) *conn {
	return &conn{
		r: bufio.NewReader(rw),
		w: rw,
	}
}

// send transmits a payload.
func (c *conn) send(payload string) (err error) {
	c.last = frame(payload)
	_, err = io.WriteString(c.w, c.last)
	return
}

// ack acknowledges, or rejects, a received packet.
func (c *conn) ack(ok bool) (err error) {
	if c.noAck {
		return
	}

	b := []byte{packetAck}
	if !ok {
		b[0] = packetNak
	}

	_, err = c.w.Write(b)
	return
}

// receive returns the next command payload. An interrupt request is
// returned as a single 0x03 byte.
func (c *conn) receive() (payload string, err error) {
	for {
		var b byte
		b, err = c.r.ReadByte()
		if err != nil {
			return
		}

		switch b {
		case packetAck:
		case packetNak:
			if len(c.last) > 0 {
				_, err = io.WriteString(c.w, c.last)
				if err != nil {
					return
				}
			}
		case packetInterrupt:
			payload = string(rune(packetInterrupt))
			return
		case packetStart:
			var raw string
			raw, err = c.r.ReadString(packetEnd)
			if err != nil {
				return
			}
			raw = raw[:len(raw)-1]

			sum := make([]byte, 2)
			_, err = io.ReadFull(c.r, sum)
			if err != nil {
				return
			}

			var want []byte
			want, err = hex.DecodeString(string(sum))
			if err != nil || want[0] != checksum(raw) {
				err = c.ack(false)
				if err != nil {
					return
				}
				continue
			}

			err = c.ack(true)
			if err != nil {
				return
			}

			payload = unescape(raw)
			return
		default:
			// Line noise between packets.
		}
	}
}
