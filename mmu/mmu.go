// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package mmu routes hart memory accesses to RAM and the memory mapped
// peripherals.
package mmu

import (
	"encoding/binary"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/rvhart/io"
	"github.com/ezrec/rvhart/trap"
)

// Memory map.
const (
	RAM_BASE = uint32(0x8000_0000)
	RAM_SIZE = uint32(64 * 1024 * 1024)
	RAM_END  = RAM_BASE + RAM_SIZE - 1 // Last byte of RAM.

	UART_BASE = uint32(0x1000_0000)
	UART_SIZE = uint32(0x100)
	UART_END  = UART_BASE + UART_SIZE - 1

	AUDIO_ADDRESS = uint32(0x1000_0200)
	AUDIO_SIZE    = uint32(4)

	STACK_TOP = RAM_BASE + RAM_SIZE - 4 // Last word aligned RAM address.
)

var _mmu_defines = map[string]string{
	"RAM_BASE":      fmt.Sprintf("0x%x", RAM_BASE),
	"RAM_SIZE":      fmt.Sprintf("0x%x", RAM_SIZE),
	"RAM_END":       fmt.Sprintf("0x%x", RAM_END),
	"UART_BASE":     fmt.Sprintf("0x%x", UART_BASE),
	"UART_LSR":      fmt.Sprintf("0x%x", UART_BASE+io.UART_LSR),
	"AUDIO_ADDRESS": fmt.Sprintf("0x%x", AUDIO_ADDRESS),
	"STACK_TOP":     fmt.Sprintf("0x%x", STACK_TOP),
}

// Window maps a device into the physical address space.
type Window struct {
	Base   uint32
	Size   uint32
	Device io.Device
}

func (w *Window) contains(address uint32, width int) bool {
	offset := uint64(address) - uint64(w.Base)
	return address >= w.Base && offset+uint64(width) <= uint64(w.Size)
}

// Mmu is the physical address space of the hart.
type Mmu struct {
	Verbose bool // Set to log device accesses.

	Uart  *io.Uart  // Console UART.
	Audio *io.Audio // Audio sample sink.

	ram     []byte
	windows []Window
}

// NewMmu creates the address space with zeroed RAM, and returns the
// playback end of its audio device.
func NewMmu() (mmu *Mmu, producer *io.AudioProducer) {
	audio, producer := io.NewAudio()

	mmu = &Mmu{
		Uart:  &io.Uart{},
		Audio: audio,
		ram:   make([]byte, RAM_SIZE),
	}

	mmu.windows = []Window{
		{Base: UART_BASE, Size: UART_SIZE, Device: mmu.Uart},
		{Base: AUDIO_ADDRESS, Size: AUDIO_SIZE, Device: mmu.Audio},
	}

	return
}

// Defines returns the memory map as assembler equates.
func (mmu *Mmu) Defines() iter.Seq2[string, string] {
	return maps.All(_mmu_defines)
}

// Reset clears RAM and resets every device.
func (mmu *Mmu) Reset() {
	clear(mmu.ram)
	for _, w := range mmu.windows {
		w.Device.Reset()
	}
}

// inRam returns the RAM slice for an access, if every byte lies in RAM.
func (mmu *Mmu) inRam(address uint32, width int) (mem []byte, ok bool) {
	if address < RAM_BASE {
		return
	}
	offset := uint64(address - RAM_BASE)
	if offset+uint64(width) > uint64(RAM_SIZE) {
		return
	}

	return mmu.ram[offset : offset+uint64(width)], true
}

func (mmu *Mmu) window(address uint32, width int) *Window {
	for n := range mmu.windows {
		w := &mmu.windows[n]
		if w.contains(address, width) {
			return w
		}
	}

	return nil
}

func (mmu *Mmu) load(address uint32, width int, cause trap.Cause) (value uint32, err error) {
	mem, ok := mmu.inRam(address, width)
	if ok {
		switch width {
		case 1:
			value = uint32(mem[0])
		case 2:
			value = uint32(binary.LittleEndian.Uint16(mem))
		default:
			value = binary.LittleEndian.Uint32(mem)
		}
		return
	}

	w := mmu.window(address, width)
	if w != nil {
		value, ok = w.Device.Load(address-w.Base, width)
		if mmu.Verbose {
			log.Printf("mmu: load%d 0x%08x => 0x%x (%v)", width*8, address, value, ok)
		}
		if ok {
			return
		}
	}

	err = trap.New(cause, address)
	return
}

func (mmu *Mmu) store(address uint32, width int, value uint32) (err error) {
	mem, ok := mmu.inRam(address, width)
	if ok {
		switch width {
		case 1:
			mem[0] = byte(value)
		case 2:
			binary.LittleEndian.PutUint16(mem, uint16(value))
		default:
			binary.LittleEndian.PutUint32(mem, value)
		}
		return
	}

	w := mmu.window(address, width)
	if w != nil {
		ok = w.Device.Store(address-w.Base, width, value)
		if mmu.Verbose {
			log.Printf("mmu: store%d 0x%08x <= 0x%x (%v)", width*8, address, value, ok)
		}
		if ok {
			return
		}
	}

	err = trap.New(trap.STORE_ACCESS_FAULT, address)
	return
}

// FetchWord reads an instruction word. Only RAM is executable.
func (mmu *Mmu) FetchWord(address uint32) (word uint32, err error) {
	mem, ok := mmu.inRam(address, 4)
	if !ok {
		err = trap.New(trap.INSTRUCTION_ACCESS_FAULT, address)
		return
	}

	word = binary.LittleEndian.Uint32(mem)
	return
}

// LoadByte reads a byte.
func (mmu *Mmu) LoadByte(address uint32) (value uint8, err error) {
	v, err := mmu.load(address, 1, trap.LOAD_ACCESS_FAULT)
	value = uint8(v)
	return
}

// LoadHalf reads a little endian halfword.
func (mmu *Mmu) LoadHalf(address uint32) (value uint16, err error) {
	v, err := mmu.load(address, 2, trap.LOAD_ACCESS_FAULT)
	value = uint16(v)
	return
}

// LoadWord reads a little endian word.
func (mmu *Mmu) LoadWord(address uint32) (value uint32, err error) {
	return mmu.load(address, 4, trap.LOAD_ACCESS_FAULT)
}

// StoreByte writes a byte.
func (mmu *Mmu) StoreByte(address uint32, value uint8) (err error) {
	return mmu.store(address, 1, uint32(value))
}

// StoreHalf writes a little endian halfword.
func (mmu *Mmu) StoreHalf(address uint32, value uint16) (err error) {
	return mmu.store(address, 2, uint32(value))
}

// StoreWord writes a little endian word.
func (mmu *Mmu) StoreWord(address uint32, value uint32) (err error) {
	return mmu.store(address, 4, value)
}

// ReadRaw reads a RAM byte without side effects or faults.
func (mmu *Mmu) ReadRaw(address uint32) (value byte, ok bool) {
	mem, ok := mmu.inRam(address, 1)
	if ok {
		value = mem[0]
	}
	return
}

// WriteRaw writes a RAM byte without side effects or faults.
func (mmu *Mmu) WriteRaw(address uint32, value byte) (ok bool) {
	mem, ok := mmu.inRam(address, 1)
	if ok {
		mem[0] = value
	}
	return
}

// LoadRam copies an image into RAM. The whole image must fit.
func (mmu *Mmu) LoadRam(address uint32, data []byte) (err error) {
	mem, ok := mmu.inRam(address, len(data))
	if !ok {
		err = &ErrRange{Address: address, Size: len(data)}
		return
	}

	copy(mem, data)
	return
}
