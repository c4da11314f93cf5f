// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/lc3/internal"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"TRAP_GETC": fmt.Sprintf("%#x", uint8(TRAP_GETC)),
	"TRAP_OUT":  fmt.Sprintf("%#x", uint8(TRAP_OUT)),
	"TRAP_PUTS": fmt.Sprintf("%#x", uint8(TRAP_PUTS)),
	"TRAP_HALT": fmt.Sprintf("%#x", uint8(TRAP_HALT)),
}

// Assembler is a single pass macro assembler for the LC-3 system.
// Label references are resolved once the whole source has been read.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin     int  // Load origin, or -1 before .ORIG.
	ended      bool // Set after .END.
	expansions int  // Count of macro expansions.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Defines returns an iterator over the system and user predefines.
func (asm *Assembler) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(sysEquate), maps.All(asm.predefine))
}

// valueOf returns the value of a numeric word.
//
//	#10, #-3     decimal
//	x3000, xFF   hexadecimal
//	0x3000, 0b11, 10
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}

	switch {
	case word[0] == '#':
		value, err = strconv.ParseInt(word[1:], 10, 64)
	case word[0] == 'x' || word[0] == 'X':
		digits := word[1:]
		negative := strings.HasPrefix(digits, "-")
		if negative {
			digits = digits[1:]
		}
		value, err = strconv.ParseInt(digits, 16, 64)
		if negative {
			value = -value
		}
	default:
		value, err = strconv.ParseInt(word, 0, 64)
	}

	if err != nil {
		err = ErrParseNumber(word)
	}

	return
}

// signedField checks a value fits a signed field, and returns it masked.
func signedField(value int64, bits int) (field uint16, err error) {
	limit := int64(1) << (bits - 1)
	if value < -limit || value >= limit {
		err = ErrImmediateRange{Value: value, Bits: bits}
		return
	}

	field = uint16(value) & uint16((1<<bits)-1)
	return
}

// wordField checks a value fits a 16-bit word, signed or unsigned.
func wordField(value int64) (field uint16, err error) {
	if value < -0x8000 || value > 0xffff {
		err = ErrImmediateRange{Value: value, Bits: 16}
		return
	}

	field = uint16(value)
	return
}

// register parses a register name.
func register(word string) (reg int, err error) {
	if len(word) != 2 || (word[0] != 'R' && word[0] != 'r') || word[1] < '0' || word[1] > '7' {
		err = ErrRegisterInvalid
		return
	}

	reg = int(word[1] - '0')
	return
}

var reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// isLabel reports whether a word is usable as a label.
func isLabel(word string) bool {
	if !reLabel.MatchString(word) {
		return false
	}
	if _, err := register(word); err == nil {
		return false
	}
	return !isMnemonic(word)
}

// mnemonics without operand variants.
var mnemonicMap = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"TRAP": true, "RTI": true,
	"GETC": true, "OUT": true, "PUTS": true, "HALT": true,
	".ORIG": true, ".FILL": true, ".BLKW": true, ".STRINGZ": true, ".END": true,
}

// branchCond returns the condition bits of a BR mnemonic.
func branchCond(word string) (nzp uint16, ok bool) {
	upper := strings.ToUpper(word)
	if !strings.HasPrefix(upper, "BR") {
		return
	}

	for _, c := range upper[2:] {
		var bit uint16
		switch c {
		case 'N':
			bit = COND_N
		case 'Z':
			bit = COND_Z
		case 'P':
			bit = COND_P
		default:
			return
		}
		if nzp&bit != 0 {
			return
		}
		nzp |= bit
	}

	if nzp == 0 {
		nzp = COND_N | COND_Z | COND_P
	}

	ok = true
	return
}

// isMnemonic reports whether a word is an instruction or directive.
func isMnemonic(word string) bool {
	if mnemonicMap[strings.ToUpper(word)] {
		return true
	}
	_, ok := branchCond(word)
	return ok
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
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
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// stripComment removes a ';' comment that is not inside a string.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}
	return text
}

var reCharacter = regexp.MustCompile(`'\\?[^']'`)
var reParen = regexp.MustCompile(`\$\([^\$]*\)`)

// parseLine parses a single line into words, after expanding characters,
// expressions, equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// A quoted string is a single word, and is not expanded.
	var quoted string
	if index := strings.IndexByte(line, '"'); index >= 0 {
		quoted = strings.TrimSpace(line[index:])
		line = line[:index]
	}

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
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
				str = "\x00"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("#%d", str[0])
	})

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("#%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(quoted) != 0 {
		words = append(words, quoted)
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// Labels, either 'name:' or a leading word that is not an
	// instruction, directive or macro.
	for len(words) > 0 {
		label := words[0]
		if strings.HasSuffix(label, ":") {
			label = label[:len(label)-1]
			if !isLabel(label) {
				err = ErrLabelInvalid
				return
			}
		} else if _, ok := asm.Macro[label]; ok || !isLabel(label) {
			break
		}

		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		if asm.origin < 0 {
			err = ErrOrigMissing
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
	}
	if len(words) == 0 {
		return
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

		// '@' makes a label local to this expansion.
		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentIp gets the address of the next generated word.
func (asm *Assembler) currentIp() int {
	if len(asm.Lines) == 0 {
		return asm.origin
	}

	last := asm.Lines[len(asm.Lines)-1]

	return last.Address + len(last.Codes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err == nil {
			return
		}
		if _, ok := err.(ErrSyntax); !ok {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Lines = asm.Lines[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Collect(asm.Defines())
	asm.origin = -1
	asm.ended = false
	asm.expansions = 0

	for scanner.Scan() && !asm.ended {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 || !isLabel(words[1]) {
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

	if asm.origin < 0 {
		err = ErrOrigMissing
		return
	}

	// Final linking of labels.
	for n := range asm.Lines {
		op := &asm.Lines[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		err = asm.link(op)
		if err != nil {
			err = ErrSyntax{LineNo: op.LineNo, Line: strings.Join(op.Words, " "), Err: err}
			return
		}
	}

	prog = &Program{
		Origin: uint16(asm.origin),
		Lines:  append([]Line(nil), asm.Lines...),
	}

	return
}

// link resolves the label of a line into its last code.
func (asm *Assembler) link(op *Line) (err error) {
	addr, ok := asm.Label[op.LinkLabel]
	if !ok {
		err = ErrLabelMissing(op.LinkLabel)
		return
	}

	linked := &op.Codes[len(op.Codes)-1]

	if op.LinkBits == 16 {
		*linked = Code(addr)
		return
	}

	// PC relative to the following instruction.
	offset := addr - (op.Address + len(op.Codes))
	field, err := signedField(int64(offset), op.LinkBits)
	if err != nil {
		err = ErrOffsetRange{Label: op.LinkLabel, Offset: offset, Bits: op.LinkBits}
		return
	}
	*linked |= Code(field)

	return
}

// args checks the operand count.
func args(words []string, count int) (err error) {
	if len(words) < count+1 {
		err = ErrOpcodeValueMissing
		return
	}
	if len(words) > count+1 {
		err = ErrOpcodeExtraArgs
		return
	}
	return
}

// offsetOrLabel encodes a numeric offset, or records a label to link.
func (asm *Assembler) offsetOrLabel(word string, bits int) (field uint16, label string, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		if !isLabel(word) {
			return
		}
		err = nil
		label = word
		return
	}

	field, err = signedField(value, bits)
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var bits int

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		line := Line{LineNo: lineno, Address: asm.currentIp(), Words: initial_words, Codes: codes, LinkLabel: label, LinkBits: bits}
		asm.Lines = append(asm.Lines, line)
	}()

	mnemonic := strings.ToUpper(words[0])

	if mnemonic != ".ORIG" && asm.origin < 0 {
		err = ErrOrigMissing
		return
	}

	if nzp, ok := branchCond(mnemonic); ok {
		err = args(words, 1)
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offsetOrLabel(words[1], 9)
		if err != nil {
			return
		}
		bits = 9
		codes = append(codes, MakeCodeBranch(nzp, 0)|Code(field))
		return
	}

	switch mnemonic {
	case ".ORIG":
		err = args(words, 1)
		if err != nil {
			return
		}
		if asm.origin >= 0 {
			err = ErrOrigDuplicate
			return
		}
		var value int64
		value, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		var origin uint16
		origin, err = wordField(value)
		if err != nil {
			return
		}
		asm.origin = int(origin)
	case ".END":
		err = args(words, 0)
		if err != nil {
			return
		}
		asm.ended = true
	case ".FILL":
		err = args(words, 1)
		if err != nil {
			return
		}
		var value int64
		value, err = asm.valueOf(words[1])
		if err != nil {
			if !isLabel(words[1]) {
				return
			}
			err = nil
			label = words[1]
			bits = 16
		}
		var word uint16
		word, err = wordField(value)
		if err != nil {
			return
		}
		codes = append(codes, Code(word))
	case ".BLKW":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count int64
		count, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if count < 0 || count > MEMORY_SIZE {
			err = ErrImmediateRange{Value: count, Bits: 16}
			return
		}
		var fill uint16
		if len(words) == 3 {
			var value int64
			value, err = asm.valueOf(words[2])
			if err != nil {
				return
			}
			fill, err = wordField(value)
			if err != nil {
				return
			}
		}
		for range count {
			codes = append(codes, Code(fill))
		}
	case ".STRINGZ":
		err = args(words, 1)
		if err != nil {
			return
		}
		var text string
		text, err = strconv.Unquote(words[1])
		if err != nil {
			err = ErrStringSyntax
			return
		}
		for n := range len(text) {
			codes = append(codes, Code(text[n]))
		}
		codes = append(codes, 0)
	case "ADD", "AND":
		op := OP_ADD
		if mnemonic == "AND" {
			op = OP_AND
		}
		err = args(words, 3)
		if err != nil {
			return
		}
		var dr, sr1, sr2 int
		dr, err = register(words[1])
		if err != nil {
			return
		}
		sr1, err = register(words[2])
		if err != nil {
			return
		}
		sr2, err = register(words[3])
		if err == nil {
			codes = append(codes, MakeCodeOperate(op, dr, sr1, sr2))
			return
		}
		var value int64
		value, err = asm.valueOf(words[3])
		if err != nil {
			return
		}
		var imm uint16
		imm, err = signedField(value, 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeOperateImm(op, dr, sr1, int(imm)))
	case "NOT":
		err = args(words, 2)
		if err != nil {
			return
		}
		var dr, sr int
		dr, err = register(words[1])
		if err != nil {
			return
		}
		sr, err = register(words[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(dr, sr))
	case "LD", "LDI", "LEA", "ST", "STI":
		op := map[string]Opcode{"LD": OP_LD, "LDI": OP_LDI, "LEA": OP_LEA, "ST": OP_ST, "STI": OP_STI}[mnemonic]
		err = args(words, 2)
		if err != nil {
			return
		}
		var reg int
		reg, err = register(words[1])
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offsetOrLabel(words[2], 9)
		if err != nil {
			return
		}
		bits = 9
		codes = append(codes, MakeCodePcRelative(op, reg, int(field)))
	case "LDR", "STR":
		op := OP_LDR
		if mnemonic == "STR" {
			op = OP_STR
		}
		err = args(words, 3)
		if err != nil {
			return
		}
		var reg, base int
		reg, err = register(words[1])
		if err != nil {
			return
		}
		base, err = register(words[2])
		if err != nil {
			return
		}
		var value int64
		value, err = asm.valueOf(words[3])
		if err != nil {
			return
		}
		var offset uint16
		offset, err = signedField(value, 6)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(op, reg, base, int(offset)))
	case "JMP", "JSRR":
		err = args(words, 1)
		if err != nil {
			return
		}
		var base int
		base, err = register(words[1])
		if err != nil {
			return
		}
		if mnemonic == "JMP" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "RET":
		err = args(words, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJmp(7))
	case "JSR":
		err = args(words, 1)
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offsetOrLabel(words[1], 11)
		if err != nil {
			return
		}
		bits = 11
		codes = append(codes, MakeCodeJsr(int(field)))
	case "TRAP":
		err = args(words, 1)
		if err != nil {
			return
		}
		var value int64
		value, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if value < 0 || value > 0xff {
			err = ErrImmediateRange{Value: value, Bits: 8}
			return
		}
		codes = append(codes, MakeCodeTrap(TrapVector(value)))
	case "GETC", "OUT", "PUTS", "HALT":
		err = args(words, 0)
		if err != nil {
			return
		}
		vector := map[string]TrapVector{"GETC": TRAP_GETC, "OUT": TRAP_OUT, "PUTS": TRAP_PUTS, "HALT": TRAP_HALT}[mnemonic]
		codes = append(codes, MakeCodeTrap(vector))
	case "RTI":
		err = args(words, 0)
		if err != nil {
			return
		}
		codes = append(codes, Code(uint16(OP_RTI)<<12))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
