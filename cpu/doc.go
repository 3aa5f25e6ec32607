// Package cpu implements a single RV32IMA hart, and the assembler that
// targets it.
//
// The hart runs in machine mode, with the Zicsr control and status
// registers needed by a bare metal trap handler. Faults raised by an
// instruction are *trap.Trap errors, delivered by Step to the handler at
// mtvec. Compressed instructions are decoded, but raise an illegal
// instruction trap.
//
// The assembler accepts the usual RISC-V assembly syntax and pseudo
// instructions, plus macros, equates, and compile-time $(...) expression
// evaluation.
package cpu
