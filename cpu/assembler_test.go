package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvhart/mmu"
)

func parse(t *testing.T, asm *Assembler, program ...string) *Program {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	return prog
}

func codesOf(prog *Program) (codes []Instr) {
	for _, code := range prog.Codes() {
		codes = append(codes, code)
	}
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(mmu.RAM_BASE, prog.Origin)
	assert.Equal(mmu.RAM_BASE, prog.Entry)

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("32", asm.Equate["XLEN"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line  string
		codes []Instr
	}{
		{"addi x10, x0, 10", []Instr{0x00a0_0513}},
		{"addi a0, a0, -1", []Instr{0xfff5_0513}},
		{"lw a0, 8(sp)", []Instr{0x0081_2503}},
		{"lw a0, (sp)", []Instr{0x0001_2503}},
		{"sw a0, -4(sp)", []Instr{0xfea1_2e23}},
		{"sb t1, 0(t0)", []Instr{0x0062_8023}},
		{"lui a0, 0x12345", []Instr{0x1234_5537}},
		{"slli a0, a1, 4", []Instr{0x0045_9513}},
		{"srai a0, a1, 4", []Instr{0x4045_d513}},
		{"mul a0, a1, a2", []Instr{0x02c5_8533}},
		{"beq a0, a1, .+8", []Instr{0x00b5_0463}},
		{"beq a0, a1, 0x80000008", []Instr{0x00b5_0463}},
		{"bne a0, zero, .-4", []Instr{0xfe05_1ee3}},
		{"jal ra, .+16", []Instr{0x0100_00ef}},
		{"jalr zero, 0(ra)", []Instr{0x0000_8067}},
		{"jalr ra, a0, 4", []Instr{0x0045_00e7}},
		{"csrrw a0, mstatus, a1", []Instr{0x3005_9573}},
		{"csrrwi zero, mscratch, 8", []Instr{0x3404_5073}},
		{"lr.w a0, (a1)", []Instr{0x1005_a52f}},
		{"sc.w a0, a2, (a1)", []Instr{0x18c5_a52f}},
		{"amoswap.w a0, a2, (a1)", []Instr{0x08c5_a52f}},
		{"fence", []Instr{0x0ff0_000f}},
		{"fence rw, w", []Instr{0x0310_000f}},
		{"ecall", []Instr{0x0000_0073}},
		{"ebreak", []Instr{0x0010_0073}},
		{"mret", []Instr{0x3020_0073}},
		{"wfi", []Instr{0x1050_0073}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog := parse(t, asm, entry.line)
		assert.Equal(entry.codes, codesOf(prog), entry.line)
	}
}

func TestAssemblerPseudo(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line  string
		codes []Instr
	}{
		{"nop", []Instr{0x0000_0013}},
		{"mv a0, a1", []Instr{0x0005_8513}},
		{"not a0, a1", []Instr{0xfff5_c513}},
		{"neg a0, a1", []Instr{0x40b0_0533}},
		{"seqz a0, a1", []Instr{0x0015_b513}},
		{"snez a0, a1", []Instr{0x00b0_3533}},
		{"ret", []Instr{0x0000_8067}},
		{"jr ra", []Instr{0x0000_8067}},
		{"jalr a0", []Instr{0x0005_00e7}},
		{"j .+8", []Instr{0x0080_006f}},
		{"jal .+16", []Instr{0x0100_00ef}},
		{"bgt a0, a1, .+8", []Instr{0x00a5_c463}},
		{"bnez a0, .-4", []Instr{0xfe05_1ee3}},
		{"csrr a0, mcause", []Instr{0x3420_2573}},
		{"csrw mtvec, t0", []Instr{0x3052_9073}},
		{"li a0, -1", []Instr{0xfff0_0513}},
		{"li a0, 0x800", []Instr{0x0000_1537, 0x8005_0513}},
		{"li a0, 0x80000000", []Instr{0x8000_0537}},
		{"li a0, 'A'", []Instr{0x0410_0513}},
		{"li a0, '\\n'", []Instr{0x00a0_0513}},
		{"tail .+0x100", []Instr{0x0000_0317, 0x1003_0067}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog := parse(t, asm, entry.line)
		assert.Equal(entry.codes, codesOf(prog), entry.line)
	}
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		"_start:",
		"  li a0, 10       # countdown",
		"loop:",
		"  addi a0, a0, -1",
		"  bnez a0, loop   ; backwards",
		"  call func",
		"  j end",
		"func:",
		"  ret",
		"end:",
		"  la a1, data",
		"data:",
		"  .word end",
	)

	assert.Equal([]Instr{
		0x00a0_0513,
		0xfff5_0513,
		0xfe05_1ee3,
		0x0000_0097, 0x00c0_80e7,
		0x0080_006f,
		0x0000_8067,
		0x0000_0597, 0x0085_8593,
	}, codesOf(prog))

	assert.Equal(mmu.RAM_BASE, prog.Labels["_start"])
	assert.Equal(mmu.RAM_BASE+0x18, prog.Labels["func"])
	assert.Equal(mmu.RAM_BASE+0x24, prog.Labels["data"])
	assert.Equal(mmu.RAM_BASE, prog.Entry)

	bin := prog.Binary()
	assert.Equal(0x28, len(bin))
	assert.Equal([]byte{0x1c, 0x00, 0x00, 0x80}, bin[0x24:])

	dbg := prog.Debug(mmu.RAM_BASE + 0x10)
	assert.Equal(6, dbg.LineNo)
	assert.Equal(1, dbg.Index)
	assert.Equal([]string{"call", "func"}, dbg.Words)
}

func TestAssemblerDirectives(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".org 0x80000100",
		".entry main",
		"table:",
		"  .word main, 0x12345678",
		"  .half 0x1234, -1",
		"  .byte 1, 'a'",
		"  .ascii \"hi\"",
		"  .asciz \"a;b\"",
		"  .align 3",
		"main:",
		"  nop",
		"  .space 4",
		"end:",
	)

	assert.Equal(uint32(0x8000_0100), prog.Origin)
	assert.Equal(uint32(0x8000_0118), prog.Entry)
	assert.Equal(uint32(0x8000_0120), prog.Labels["end"])
	assert.Equal(uint32(0x8000_0120), prog.End())
	assert.Equal([]byte{
		0x18, 0x01, 0x00, 0x80,
		0x78, 0x56, 0x34, 0x12,
		0x34, 0x12, 0xff, 0xff,
		0x01, 0x61,
		0x68, 0x69,
		0x61, 0x3b, 0x62, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x13, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, prog.Binary())
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SIZE", "16")
	asm.Predefine("SIZE", "16")
	prog := parse(t, asm,
		".equ BASE 0x100",
		"li a0, $(BASE * 2 + LINENO)",
		"start:",
		"  nop",
		"mid:",
		"  li a0, $(mid - start)",
		"  li a0, SIZE",
		".equ COUNTER a0",
		"  mv COUNTER, a1",
	)

	assert.Equal([]Instr{
		0x2020_0513,
		0x0000_0013,
		0x0040_0513,
		0x0100_0513,
		0x0005_8513,
	}, codesOf(prog))
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".macro delay count",
		"  li t0, count",
		"@loop:",
		"  addi t0, t0, -1",
		"  bnez t0, @loop",
		".endm",
		"  delay 3",
		"  delay 5",
	)

	assert.Equal([]Instr{
		0x0030_0293, 0xfff2_8293, 0xfe02_9ee3,
		0x0050_0293, 0xfff2_8293, 0xfe02_9ee3,
	}, codesOf(prog))

	assert.Equal(mmu.RAM_BASE+4, prog.Labels["delay_7_loop"])
	assert.Equal(mmu.RAM_BASE+0x10, prog.Labels["delay_8_loop"])

	// Macro arguments do not leak.
	_, ok := asm.Equate["count"]
	assert.False(ok)
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
	}){
		{"DUP:\nDUP:\n", 2},
		{"addi a0, a1", 1},
		{"addi a0, a1, 1, 2", 1},
		{"addi a9, a1, 1", 1},
		{"addi a0, a1, 2048", 1},
		{"addi a0, a1, nothing", 1},
		{"slli a0, a1, 32", 1},
		{"li a0, $(\"aaa\")", 1},
		{"li a0, $(more(\"aaa\"))", 1},
		{"li a0, 0x1ffffffff", 1},
		{"frob a0", 1},
		{"nop\nj nowhere\n", 2},
		{"nop\nbeq a0, a1, far\n.space 8192\nfar:\n", 2},
		{".equ", 1},
		{".equ A", 1},
		{".equ A 1\n.equ A 2\n", 2},
		{".macro A B C\n.endm\nA 1\n", 3},
		{".macro A B\nfrob B\n.endm\nnop\nA 1\n", 5},
		{".macro A B\n.macro C\n.endm\n.endm", 2},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3},
		{".macro A B\n.endm\n.endm\n", 3},
		{".macro A\nnop\n", 2},
		{"nop\n.org 0x80000000\n", 2},
		{".bogus", 1},
		{".ascii abc", 1},
		{".align 13", 1},
		{"lw a0, 4", 1},
		{"lw a0, 4(q0)", 1},
		{"csrr a0, nosuch", 1},
		{"lr.w a0, 4(a1)", 1},
		{"fence rw, x", 1},
		{"ecall a0", 1},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
		}
	}

	_, err := asm.Parse(strings.NewReader(".entry missing\nnop\n"))
	var lm ErrLabelMissing
	assert.True(errors.As(err, &lm))
	assert.Equal(ErrLabelMissing("missing"), lm)

	_, err = asm.Parse(strings.NewReader("addi a0, a1, 2048"))
	var ir *ErrImmediateRange
	assert.True(errors.As(err, &ir))
}

func TestAssemblerRoundTrip(t *testing.T) {
	assert := assert.New(t)

	// Every disassembled instruction assembles back to itself.
	codes := []Instr{
		0x00a0_0513, 0x0081_2503, 0xfea1_2e23, 0x00b5_0463, 0xfe05_1ee3,
		0x1234_5537, 0x0100_00ef, 0x0000_8067, 0x0045_9513, 0x4045_d513,
		0x02c5_8533, 0x3005_9573, 0x3404_5073, 0x1005_a52f, 0x18c5_a52f,
		0x0000_0073, 0x0010_0073, 0x3020_0073,
	}

	for _, code := range codes {
		asm := &Assembler{}
		prog := parse(t, asm, code.String())
		assert.Equal([]Instr{code}, codesOf(prog), code.String())
	}
}
