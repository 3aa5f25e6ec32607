package io

import (
	"encoding/binary"
	"iter"
	"math"
	"sync/atomic"
)

const (
	AUDIO_SAMPLE_RATE = 44100                 // Playback rate, per channel.
	AUDIO_CHANNELS    = 2                     // Interleaved channels.
	AUDIO_CAPACITY    = AUDIO_SAMPLE_RATE * 8 // Ring capacity in samples.
)

// audioRing is a single producer, single consumer ring of samples.
// The emulated hart is the only writer and the audio backend the only reader.
type audioRing struct {
	data  []int16
	read  atomic.Uint64 // Samples consumed.
	write atomic.Uint64 // Samples produced.
}

func (ring *audioRing) size() uint64 {
	return ring.write.Load() - ring.read.Load()
}

// Audio is the hart side of the audio device.
type Audio struct {
	Dropped int // Samples discarded because the ring was full.

	ring *audioRing
}

var _ Device = (*Audio)(nil)

// AudioProducer is the playback side of the audio device.
type AudioProducer struct {
	ring    *audioRing
	pending []byte
}

// NewAudio returns the two ends of an audio ring.
func NewAudio() (audio *Audio, producer *AudioProducer) {
	ring := &audioRing{data: make([]int16, AUDIO_CAPACITY)}

	audio = &Audio{ring: ring}
	producer = &AudioProducer{ring: ring}

	return
}

// Reset discards queued samples. Only safe while playback is stopped.
func (audio *Audio) Reset() {
	audio.ring.read.Store(audio.ring.write.Load())
	audio.Dropped = 0
}

// Write queues a sample. When the ring is full the sample is dropped.
func (audio *Audio) Write(sample int16) (ok bool) {
	ring := audio.ring
	if ring.size() >= uint64(len(ring.data)) {
		audio.Dropped++
		return
	}

	index := ring.write.Load()
	ring.data[index%uint64(len(ring.data))] = sample
	ring.write.Store(index + 1)

	ok = true
	return
}

// Size returns the number of queued samples.
func (audio *Audio) Size() uint32 {
	return uint32(audio.ring.size())
}

// Load reads the ring fill level. Only full word reads are decoded.
func (audio *Audio) Load(offset uint32, width int) (value uint32, ok bool) {
	if offset != 0 || width != 4 {
		return
	}

	return audio.Size(), true
}

// Store queues one signed sample. Only halfword writes are decoded.
func (audio *Audio) Store(offset uint32, width int, value uint32) (ok bool) {
	if offset != 0 || width != 2 {
		return
	}

	audio.Write(int16(uint16(value)))

	return true
}

// Next removes the oldest sample, normalized to [-1, 1].
// An empty ring yields silence.
func (producer *AudioProducer) Next() (sample float32) {
	ring := producer.ring

	index := ring.read.Load()
	if index == ring.write.Load() {
		return
	}

	sample = float32(ring.data[index%uint64(len(ring.data))]) / math.MaxInt16
	ring.read.Store(index + 1)

	return
}

// Samples is an endless sequence of interleaved samples.
func (producer *AudioProducer) Samples() iter.Seq[float32] {
	return func(yield func(float32) bool) {
		for {
			if !yield(producer.Next()) {
				return
			}
		}
	}
}

// Read fills buf with little endian float32 samples. It never blocks and
// never reports end of stream.
func (producer *AudioProducer) Read(buf []byte) (n int, err error) {
	n = copy(buf, producer.pending)
	producer.pending = producer.pending[n:]

	var word [4]byte
	for n < len(buf) {
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(producer.Next()))
		copied := copy(buf[n:], word[:])
		n += copied
		if copied < len(word) {
			producer.pending = append(producer.pending[:0], word[copied:]...)
		}
	}

	return
}
