package io

// UART register offsets and line status bits, after the 16550.
const (
	UART_RBR = 0 // Receive buffer (load) and transmit holding (store) register.
	UART_THR = 0
	UART_LSR = 5 // Line status register.

	UART_LSR_DR   = 0x01 // Receive data ready.
	UART_LSR_THRE = 0x20 // Transmit holding register empty.
	UART_LSR_TEMT = 0x40 // Transmitter empty.
)

// Uart is a byte FIFO pair between the emulated program and the host.
// Transmission is never back-pressured: the transmit side always reports
// empty and every stored byte is queued for the host.
type Uart struct {
	FromEmu []byte // Bytes written by the program, oldest first.
	ToEmu   []byte // Bytes pending for the program, oldest first.
}

var _ Device = (*Uart)(nil)

// Reset drops both queues.
func (uart *Uart) Reset() {
	uart.FromEmu = nil
	uart.ToEmu = nil
}

// EmuPush queues a byte written by the program.
func (uart *Uart) EmuPush(b byte) {
	uart.FromEmu = append(uart.FromEmu, b)
}

// TryGetByte removes the oldest byte written by the program.
func (uart *Uart) TryGetByte() (b byte, ok bool) {
	if len(uart.FromEmu) > 0 {
		ok = true
		b = uart.FromEmu[0]
		uart.FromEmu = uart.FromEmu[1:]
	}

	return
}

// Pending returns the number of bytes waiting for the host.
func (uart *Uart) Pending() int {
	return len(uart.FromEmu)
}

// HostPush queues bytes for the program to read.
func (uart *Uart) HostPush(data ...byte) {
	uart.ToEmu = append(uart.ToEmu, data...)
}

// EmuPop removes the oldest byte queued for the program.
func (uart *Uart) EmuPop() (b byte, ok bool) {
	if len(uart.ToEmu) > 0 {
		ok = true
		b = uart.ToEmu[0]
		uart.ToEmu = uart.ToEmu[1:]
	}

	return
}

// Status returns the line status register.
func (uart *Uart) Status() (lsr uint32) {
	lsr = UART_LSR_THRE | UART_LSR_TEMT
	if len(uart.ToEmu) > 0 {
		lsr |= UART_LSR_DR
	}

	return
}

// Load reads a UART register. An empty receive buffer reads as zero.
func (uart *Uart) Load(offset uint32, width int) (value uint32, ok bool) {
	ok = true

	switch offset {
	case UART_RBR:
		b, _ := uart.EmuPop()
		value = uint32(b)
	case UART_LSR:
		value = uart.Status()
	default:
		// Unimplemented registers read as zero.
	}

	return
}

// Store writes a UART register. Only the transmit holding register has an
// effect, and only its low byte is sent.
func (uart *Uart) Store(offset uint32, width int, value uint32) (ok bool) {
	if offset == UART_THR {
		uart.EmuPush(byte(value))
	}

	return true
}
