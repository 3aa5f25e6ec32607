package io

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudio(t *testing.T) {
	assert := assert.New(t)

	audio, producer := NewAudio()

	assert.Equal(uint32(0), audio.Size())
	assert.Equal(float32(0), producer.Next())

	assert.True(audio.Write(math.MaxInt16))
	assert.True(audio.Write(-math.MaxInt16))
	assert.True(audio.Write(0))
	assert.Equal(uint32(3), audio.Size())

	assert.Equal(float32(1), producer.Next())
	assert.Equal(float32(-1), producer.Next())
	assert.Equal(float32(0), producer.Next())
	assert.Equal(uint32(0), audio.Size())

	// Underrun is silence.
	assert.Equal(float32(0), producer.Next())
}

func TestAudioFull(t *testing.T) {
	assert := assert.New(t)

	audio, producer := NewAudio()

	for n := range AUDIO_CAPACITY {
		if !audio.Write(int16(n & 0x7fff)) {
			t.Fatalf("write %d refused", n)
		}
	}
	assert.Equal(uint32(AUDIO_CAPACITY), audio.Size())

	assert.False(audio.Write(1))
	assert.Equal(1, audio.Dropped)
	assert.Equal(uint32(AUDIO_CAPACITY), audio.Size())

	assert.Equal(float32(0), producer.Next())
	assert.True(audio.Write(2))
	assert.Equal(uint32(AUDIO_CAPACITY), audio.Size())

	audio.Reset()
	assert.Equal(uint32(0), audio.Size())
	assert.Equal(0, audio.Dropped)
}

func TestAudioDevice(t *testing.T) {
	assert := assert.New(t)

	audio, producer := NewAudio()

	assert.True(audio.Store(0, 2, 0xffff_8001))
	assert.False(audio.Store(0, 1, 1))
	assert.False(audio.Store(0, 4, 1))

	value, ok := audio.Load(0, 4)
	assert.True(ok)
	assert.Equal(uint32(1), value)

	_, ok = audio.Load(0, 2)
	assert.False(ok)
	_, ok = audio.Load(0, 1)
	assert.False(ok)

	assert.Equal(float32(-1), producer.Next())
}

func TestAudioSamples(t *testing.T) {
	assert := assert.New(t)

	audio, producer := NewAudio()
	audio.Write(math.MaxInt16)

	var got []float32
	for sample := range producer.Samples() {
		got = append(got, sample)
		if len(got) == 3 {
			break
		}
	}
	assert.Equal([]float32{1, 0, 0}, got)
}

func TestAudioRead(t *testing.T) {
	assert := assert.New(t)

	audio, producer := NewAudio()
	audio.Write(math.MaxInt16)
	audio.Write(-math.MaxInt16)

	// Split a sample across two reads.
	buf := make([]byte, 6)
	n, err := producer.Read(buf)
	assert.NoError(err)
	assert.Equal(6, n)
	assert.Equal(float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))

	rest := make([]byte, 6)
	n, err = producer.Read(rest)
	assert.NoError(err)
	assert.Equal(6, n)

	word := append(buf[4:6:6], rest[0:2]...)
	assert.Equal(float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(word)))
	assert.Equal(float32(0), math.Float32frombits(binary.LittleEndian.Uint32(rest[2:6])))
}
