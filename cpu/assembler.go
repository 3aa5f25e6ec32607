// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/rvhart/mmu"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
	"XLEN":   "32",
}

// Assembler is a single pass macro assembler for RV32IMA.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]uint32   // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin uint32 // Address of the first opcode.
	addr   uint32 // Address of the next opcode.
	entry  string // Entry point label.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// registerMap maps register names to register numbers.
var registerMap = func() map[string]uint8 {
	regs := map[string]uint8{"fp": 8}
	for n, name := range RegisterNames {
		regs[name] = uint8(n)
		regs[fmt.Sprintf("x%d", n)] = uint8(n)
	}
	return regs
}()

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	for range 8 {
		equate, ok := asm.Equate[word]
		if !ok {
			break
		}
		word = equate
	}

	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	v64, err := strconv.ParseInt(strings.ReplaceAll(word, "_", ""), 0, 34)
	if err != nil || v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// immediate returns a signed value that must lie within [min, max].
func (asm *Assembler) immediate(word string, min, max int32) (value int32, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}

	value = int32(v)
	err = checkRange(value, min, max, 1)
	return
}

// register returns the register number of a word.
func (asm *Assembler) register(word string) (r uint8, err error) {
	r, ok := registerMap[word]
	if !ok {
		equate, is_equ := asm.Equate[word]
		if is_equ {
			r, ok = registerMap[equate]
		}
	}
	if !ok {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
	}
	return
}

// csr returns the CSR number of a word.
func (asm *Assembler) csr(word string) (index uint16, err error) {
	index, ok := CsrNames[word]
	if ok {
		return
	}

	value, err := asm.valueOf(word)
	if err != nil || value > 0xfff {
		err = fmt.Errorf("%w: %v", ErrCsrInvalid, word)
		return
	}

	index = uint16(value)
	return
}

var reMemory = regexp.MustCompile(`^([^()]*)\(([^()]+)\)$`)

// memory parses an offset(register) operand.
func (asm *Assembler) memory(word string) (offset int32, base uint8, err error) {
	match := reMemory.FindStringSubmatch(word)
	if match == nil {
		err = fmt.Errorf("%w: %v", ErrMemoryOperand, word)
		return
	}

	base, err = asm.register(match[2])
	if err != nil {
		return
	}

	if len(match[1]) > 0 {
		offset, err = asm.immediate(match[1], -2048, 2047)
	}
	return
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.$][A-Za-z0-9_.$@]*$`)

// target parses a control transfer operand, returning either a label to
// link, or an offset from pc. Targets are labels, `.+N` or `.-N` pc
// relative offsets, or absolute addresses.
func (asm *Assembler) target(word string, pc uint32) (label string, offset int32, err error) {
	if len(word) > 2 && word[0] == '.' && (word[1] == '+' || word[1] == '-') {
		var value uint32
		value, err = asm.valueOf(word[1:])
		offset = int32(value)
		return
	}

	value, err := asm.valueOf(word)
	if err == nil {
		offset = int32(value - pc)
		return
	}

	if !reLabel.MatchString(word) {
		return
	}

	label = word
	err = nil
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	for key, addr := range asm.Label {
		if reLabel.MatchString(key) && !strings.ContainsAny(key, ".$@") {
			pred[key] = starlark.MakeInt64(int64(addr))
		}
	}
	err = nil
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// stripComment removes a trailing ';' or '#' comment, outside of quotes.
func stripComment(text string) string {
	var quote byte
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote != 0 && c == '\\':
			n++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'':
			quote = c
		case c == ';' || c == '#':
			return text[:n]
		}
	}
	return text
}

// splitWords splits a line on spaces and commas, keeping quoted strings
// as single words.
func splitWords(line string) (words []string) {
	var word strings.Builder
	inString := false
	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for n := 0; n < len(line); n++ {
		c := line[n]
		switch {
		case inString && c == '\\' && n+1 < len(line):
			word.WriteByte(c)
			n++
			word.WriteByte(line[n])
		case c == '"':
			inString = !inString
			word.WriteByte(c)
		case !inString && (c == ' ' || c == '\t' || c == ','):
			flush()
		default:
			word.WriteByte(c)
		}
	}
	flush()

	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" || words[0] == ".set" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok && words[0] == ".equ" {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.addr
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique to each expansion.
		local := fmt.Sprintf("%v_%v_", name, lineno)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint32, 16)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.origin = mmu.RAM_BASE
	asm.addr = asm.origin
	asm.entry = ""

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		for _, link := range op.Links {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = asm.link(op, link)
			if err != nil {
				return
			}
		}
	}

	entry := asm.origin
	if len(asm.entry) == 0 {
		start, ok := asm.Label["_start"]
		if ok {
			entry = start
		}
	} else {
		start, ok := asm.Label[asm.entry]
		if !ok {
			err = ErrLabelMissing(asm.entry)
			return
		}
		entry = start
	}

	prog = &Program{
		Origin:  asm.origin,
		Entry:   entry,
		Labels:  maps.Clone(asm.Label),
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link patches a label reference into an opcode.
func (asm *Assembler) link(op *Opcode, link Link) (err error) {
	target, ok := asm.Label[link.Label]
	if !ok {
		err = ErrLabelMissing(link.Label)
		return
	}

	pc := op.Addr + uint32(4*link.Index)
	offset := int32(target - pc)

	var imm Instr
	switch link.Kind {
	case LINK_BRANCH:
		imm, err = EncodeB(0, 0, 0, 0, offset)
		op.Codes[link.Index] |= imm
	case LINK_JUMP:
		imm, err = EncodeJ(0, 0, offset)
		op.Codes[link.Index] |= imm
	case LINK_PCREL:
		hi, lo := SplitImm(uint32(offset))
		op.Codes[link.Index] |= Instr(hi)
		op.Codes[link.Index+1] |= Instr(uint32(lo)&0xfff) << 20
	case LINK_WORD:
		binary.LittleEndian.PutUint32(op.Data[4*link.Index:], target)
	}

	return
}

// pseudo expands pseudo-instructions into base instructions.
func pseudo(words []string) (lines [][]string) {
	name, args := words[0], words[1:]
	one := func(insn ...string) [][]string { return [][]string{insn} }

	switch {
	case name == "nop" && len(args) == 0:
		return one("addi", "zero", "zero", "0")
	case name == "mv" && len(args) == 2:
		return one("addi", args[0], args[1], "0")
	case name == "not" && len(args) == 2:
		return one("xori", args[0], args[1], "-1")
	case name == "neg" && len(args) == 2:
		return one("sub", args[0], "zero", args[1])
	case name == "seqz" && len(args) == 2:
		return one("sltiu", args[0], args[1], "1")
	case name == "snez" && len(args) == 2:
		return one("sltu", args[0], "zero", args[1])
	case name == "j" && len(args) == 1:
		return one("jal", "zero", args[0])
	case name == "jal" && len(args) == 1:
		return one("jal", "ra", args[0])
	case name == "jr" && len(args) == 1:
		return one("jalr", "zero", "0("+args[0]+")")
	case name == "jalr" && len(args) == 1:
		return one("jalr", "ra", "0("+args[0]+")")
	case name == "ret" && len(args) == 0:
		return one("jalr", "zero", "0(ra)")
	case name == "beqz" && len(args) == 2:
		return one("beq", args[0], "zero", args[1])
	case name == "bnez" && len(args) == 2:
		return one("bne", args[0], "zero", args[1])
	case name == "bltz" && len(args) == 2:
		return one("blt", args[0], "zero", args[1])
	case name == "bgez" && len(args) == 2:
		return one("bge", args[0], "zero", args[1])
	case name == "blez" && len(args) == 2:
		return one("bge", "zero", args[0], args[1])
	case name == "bgtz" && len(args) == 2:
		return one("blt", "zero", args[0], args[1])
	case name == "bgt" && len(args) == 3:
		return one("blt", args[1], args[0], args[2])
	case name == "ble" && len(args) == 3:
		return one("bge", args[1], args[0], args[2])
	case name == "bgtu" && len(args) == 3:
		return one("bltu", args[1], args[0], args[2])
	case name == "bleu" && len(args) == 3:
		return one("bgeu", args[1], args[0], args[2])
	case name == "csrr" && len(args) == 2:
		return one("csrrs", args[0], args[1], "zero")
	case name == "csrw" && len(args) == 2:
		return one("csrrw", "zero", args[0], args[1])
	case name == "csrs" && len(args) == 2:
		return one("csrrs", "zero", args[0], args[1])
	case name == "csrc" && len(args) == 2:
		return one("csrrc", "zero", args[0], args[1])
	case name == "csrwi" && len(args) == 2:
		return one("csrrwi", "zero", args[0], args[1])
	case name == "csrsi" && len(args) == 2:
		return one("csrrsi", "zero", args[0], args[1])
	case name == "csrci" && len(args) == 2:
		return one("csrrci", "zero", args[0], args[1])
	}

	return [][]string{words}
}

// loadImmediate expands li and la. Numeric values are built with lui and
// addi, labels with a pc relative auipc and addi pair.
func (asm *Assembler) loadImmediate(args []string) (codes []Instr, links []Link, err error) {
	if len(args) != 2 {
		err = ErrOpcodeValueMissing
		return
	}

	rd, err := asm.register(args[0])
	if err != nil {
		return
	}

	value, err := asm.valueOf(args[1])
	if err != nil {
		if !reLabel.MatchString(args[1]) {
			return
		}
		err = nil
		codes = []Instr{
			EncodeU(OPCODE_AUIPC, rd, 0),
			EncodeR(OPCODE_OP_IMM, rd, 0, rd, 0, 0),
		}
		links = []Link{{Label: args[1], Kind: LINK_PCREL, Index: 0}}
		return
	}

	hi, lo := SplitImm(value)
	if hi == 0 {
		code, _ := EncodeI(OPCODE_OP_IMM, rd, 0, REG_ZERO, lo)
		codes = []Instr{code}
		return
	}

	codes = []Instr{EncodeU(OPCODE_LUI, rd, hi)}
	if lo != 0 {
		code, _ := EncodeI(OPCODE_OP_IMM, rd, 0, rd, lo)
		codes = append(codes, code)
	}
	return
}

// farCall expands call and tail into an auipc and jalr pair.
func (asm *Assembler) farCall(args []string, link uint8, scratch uint8) (codes []Instr, links []Link, err error) {
	if len(args) != 1 {
		err = ErrOpcodeValueMissing
		return
	}

	label, offset, err := asm.target(args[0], asm.addr)
	if err != nil {
		return
	}

	hi, lo := SplitImm(uint32(offset))
	jalr, _ := EncodeI(OPCODE_JALR, link, 0, scratch, lo)
	codes = []Instr{EncodeU(OPCODE_AUIPC, scratch, hi), jalr}
	if len(label) > 0 {
		links = []Link{{Label: label, Kind: LINK_PCREL, Index: 0}}
	}
	return
}

// fenceSet encodes the predecessor and successor sets of a fence.
func fenceSet(word string) (set uint32, err error) {
	for _, c := range word {
		switch c {
		case 'i':
			set |= 0b1000
		case 'o':
			set |= 0b0100
		case 'r':
			set |= 0b0010
		case 'w':
			set |= 0b0001
		default:
			err = ErrInstructionInvalid
			return
		}
	}
	return
}

// instruction assembles a single base instruction at pc.
func (asm *Assembler) instruction(words []string, pc uint32, index int) (code Instr, link *Link, err error) {
	in, ok := Lookup(words[0])
	if !ok {
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, words[0])
		return
	}

	args := words[1:]
	want := map[Format]int{
		FORMAT_R:      3,
		FORMAT_I:      3,
		FORMAT_SHIFT:  3,
		FORMAT_LOAD:   2,
		FORMAT_S:      2,
		FORMAT_B:      3,
		FORMAT_U:      2,
		FORMAT_J:      2,
		FORMAT_JALR:   2,
		FORMAT_CSR:    3,
		FORMAT_CSRI:   3,
		FORMAT_SYSTEM: 0,
		FORMAT_LR:     2,
		FORMAT_AMO:    3,
	}[in.Format]
	switch {
	case in.Format == FORMAT_FENCE:
		if len(args) != 0 && len(args) != 2 {
			err = ErrOpcodeExtraArgs
			return
		}
	case in.Format == FORMAT_JALR && len(args) == 3:
		// jalr rd, rs1, imm
		args = []string{args[0], args[2] + "(" + args[1] + ")"}
	case len(args) < want:
		err = ErrOpcodeValueMissing
		return
	case len(args) > want:
		err = ErrOpcodeExtraArgs
		return
	}

	code = in.Encode()

	// Most formats start with rd.
	var rd uint8
	switch in.Format {
	case FORMAT_R, FORMAT_I, FORMAT_SHIFT, FORMAT_LOAD, FORMAT_U, FORMAT_J,
		FORMAT_JALR, FORMAT_CSR, FORMAT_CSRI, FORMAT_LR, FORMAT_AMO:
		rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		code |= field5(rd) << 7
	}

	var r1, r2 uint8
	var imm int32
	switch in.Format {
	case FORMAT_R:
		if r1, err = asm.register(args[1]); err != nil {
			return
		}
		if r2, err = asm.register(args[2]); err != nil {
			return
		}
		code |= field5(r1)<<15 | field5(r2)<<20
	case FORMAT_I:
		if r1, err = asm.register(args[1]); err != nil {
			return
		}
		if imm, err = asm.immediate(args[2], -2048, 2047); err != nil {
			return
		}
		code |= field5(r1)<<15 | Instr(uint32(imm)&0xfff)<<20
	case FORMAT_SHIFT:
		if r1, err = asm.register(args[1]); err != nil {
			return
		}
		if imm, err = asm.immediate(args[2], 0, 31); err != nil {
			return
		}
		code |= field5(r1)<<15 | Instr(imm)<<20
	case FORMAT_LOAD, FORMAT_JALR:
		if imm, r1, err = asm.memory(args[1]); err != nil {
			return
		}
		code |= field5(r1)<<15 | Instr(uint32(imm)&0xfff)<<20
	case FORMAT_S:
		if r2, err = asm.register(args[0]); err != nil {
			return
		}
		if imm, r1, err = asm.memory(args[1]); err != nil {
			return
		}
		var s Instr
		s, err = EncodeS(in.Opcode, in.Funct3, r1, r2, imm)
		code = s
	case FORMAT_B:
		if r1, err = asm.register(args[0]); err != nil {
			return
		}
		if r2, err = asm.register(args[1]); err != nil {
			return
		}
		var label string
		if label, imm, err = asm.target(args[2], pc); err != nil {
			return
		}
		if len(label) > 0 {
			imm = 0
			link = &Link{Label: label, Kind: LINK_BRANCH, Index: index}
		}
		var b Instr
		b, err = EncodeB(in.Opcode, in.Funct3, r1, r2, imm)
		code = b
	case FORMAT_U:
		if imm, err = asm.immediate(args[1], -0x80000, 0xfffff); err != nil {
			return
		}
		code |= Instr(uint32(imm)&0xfffff) << 12
	case FORMAT_J:
		var label string
		if label, imm, err = asm.target(args[1], pc); err != nil {
			return
		}
		if len(label) > 0 {
			imm = 0
			link = &Link{Label: label, Kind: LINK_JUMP, Index: index}
		}
		var j Instr
		j, err = EncodeJ(in.Opcode, rd, imm)
		code = j
	case FORMAT_CSR, FORMAT_CSRI:
		var number uint16
		if number, err = asm.csr(args[1]); err != nil {
			return
		}
		var src uint8
		if in.Format == FORMAT_CSR {
			src, err = asm.register(args[2])
		} else {
			imm, err = asm.immediate(args[2], 0, 31)
			src = uint8(imm)
		}
		if err != nil {
			return
		}
		code = EncodeCsr(in.Funct3, rd, number, src)
	case FORMAT_FENCE:
		pred, succ := uint32(0b1111), uint32(0b1111)
		if len(args) == 2 {
			if pred, err = fenceSet(args[0]); err != nil {
				return
			}
			if succ, err = fenceSet(args[1]); err != nil {
				return
			}
		}
		if in.Funct3 == 0 {
			code |= Instr(pred<<24 | succ<<20)
		}
	case FORMAT_LR, FORMAT_AMO:
		mem := args[len(args)-1]
		if imm, r1, err = asm.memory(mem); err != nil {
			return
		}
		if imm != 0 {
			err = fmt.Errorf("%w: %v", ErrMemoryOperand, mem)
			return
		}
		code |= field5(r1) << 15
		if in.Format == FORMAT_AMO {
			if r2, err = asm.register(args[1]); err != nil {
				return
			}
			code |= field5(r2) << 20
		}
	}

	return
}

// data assembles a .word, .half or .byte directive.
func (asm *Assembler) data(size int, args []string) (data []byte, links []Link, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	for n, arg := range args {
		value, verr := asm.valueOf(arg)
		if verr != nil {
			if size != 4 || !reLabel.MatchString(arg) {
				err = verr
				return
			}
			links = append(links, Link{Label: arg, Kind: LINK_WORD, Index: n})
		}
		switch size {
		case 1:
			data = append(data, byte(value))
		case 2:
			data = binary.LittleEndian.AppendUint16(data, uint16(value))
		default:
			data = binary.LittleEndian.AppendUint32(data, value)
		}
	}

	return
}

// directive handles assembler directives.
func (asm *Assembler) directive(words []string) (data []byte, links []Link, err error) {
	args := words[1:]

	switch words[0] {
	case ".org":
		if len(args) != 1 {
			err = ErrDirectiveInvalid
			return
		}
		var addr uint32
		addr, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if len(asm.Opcode) == 0 {
			asm.origin = addr
		} else if addr < asm.addr {
			err = ErrOriginBackwards
			return
		}
		asm.addr = addr
	case ".entry", ".globl", ".global":
		if len(args) != 1 {
			err = ErrDirectiveInvalid
			return
		}
		if words[0] == ".entry" {
			asm.entry = args[0]
		}
	case ".text", ".data", ".section":
		// Single section output.
	case ".word":
		data, links, err = asm.data(4, args)
	case ".half":
		data, links, err = asm.data(2, args)
	case ".byte":
		data, links, err = asm.data(1, args)
	case ".space", ".zero":
		if len(args) != 1 {
			err = ErrDirectiveInvalid
			return
		}
		var size uint32
		size, err = asm.valueOf(args[0])
		data = make([]byte, size)
	case ".align", ".p2align":
		if len(args) != 1 {
			err = ErrDirectiveInvalid
			return
		}
		var pow uint32
		pow, err = asm.valueOf(args[0])
		if err != nil || pow > 12 {
			err = ErrDirectiveInvalid
			return
		}
		align := uint32(1) << pow
		data = make([]byte, (align-asm.addr%align)%align)
	case ".ascii", ".asciz", ".string":
		for _, arg := range args {
			str, uerr := strconv.Unquote(arg)
			if uerr != nil || arg[0] != '"' {
				err = fmt.Errorf("%w: %v", ErrStringSyntax, arg)
				return
			}
			data = append(data, str...)
			if words[0] != ".ascii" {
				data = append(data, 0)
			}
		}
	default:
		err = fmt.Errorf("%w: %v", ErrDirectiveInvalid, words[0])
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Instr
	var data []byte
	var links []Link

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || (len(codes) == 0 && len(data) == 0) {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.addr, Words: initial_words, Codes: codes, Data: data, Links: links}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.addr += opcode.Size()
	}()

	if strings.HasPrefix(words[0], ".") {
		data, links, err = asm.directive(words)
		return
	}

	switch words[0] {
	case "li", "la":
		codes, links, err = asm.loadImmediate(words[1:])
		return
	case "call":
		codes, links, err = asm.farCall(words[1:], REG_RA, REG_RA)
		return
	case "tail":
		codes, links, err = asm.farCall(words[1:], REG_ZERO, 6)
		return
	}

	for _, insn := range pseudo(words) {
		var code Instr
		var link *Link
		pc := asm.addr + uint32(4*len(codes))
		code, link, err = asm.instruction(insn, pc, len(codes))
		if err != nil {
			return
		}
		codes = append(codes, code)
		if link != nil {
			links = append(links, *link)
		}
	}

	return
}
