// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
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

	"github.com/ezrec/rvemu/bus"
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
}

// Directives with no effect on a flat image.
var ignoredDirective = map[string]bool{
	".global":  true,
	".globl":   true,
	".text":    true,
	".section": true,
	".option":  true,
}

// Assembler is a single pass macro assembler for RV64 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]uint64   // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate,
// applied at the start of every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		// Permit unsigned 64-bit constants, as their two's complement.
		var u64 uint64
		u64, err = strconv.ParseUint(word, 0, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
		value = int64(u64)
	}

	if invert {
		value = ^value
	}

	return
}

// registerOf returns the register index of a word.
func (asm *Assembler) registerOf(word string) (reg int, err error) {
	reg, ok := AbiRegister(word)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}

	return
}

// immediateOf returns a value that fits in a sign-extended 12-bit immediate.
func (asm *Assembler) immediateOf(word string) (imm int64, err error) {
	imm, err = asm.valueOf(word)
	if err != nil {
		return
	}

	if imm < -2048 || imm > 2047 {
		err = fmt.Errorf("%w: %v", ErrImmediateRange, imm)
		return
	}

	return
}

// parenEval evaluates a compile-time $(...) expression.
// Integer equates and labels defined so far are visible to the expression.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	env := starlark.StringDict{}
	for name, text := range asm.Equate {
		// Equates that are not integers may be registers, or anything else.
		if v, verr := asm.valueOf(text); verr == nil {
			env[name] = starlark.MakeInt64(v)
		}
	}
	for name, addr := range asm.Label {
		env[name] = starlark.MakeUint64(addr)
	}

	thread := &starlark.Thread{Name: "asm"}
	result, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", expr, env)
	if err != nil {
		return
	}

	num, ok := result.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	value, ok = num.Int64()
	if ok {
		return
	}

	u64, ok := num.Uint64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int64(u64)

	return
}

// stripComment removes a trailing '#', ';' or '//' comment.
// Comment characters inside a character literal are kept.
func stripComment(text string) string {
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\'':
			end := n + 1
			if end < len(text) && text[end] == '\\' {
				end++
			}
			end++
			if end < len(text) && text[end] == '\'' {
				n = end
			}
		case '#', ';':
			return text[:n]
		case '/':
			if n+1 < len(text) && text[n+1] == '/' {
				return text[:n]
			}
		}
	}

	return text
}

// splitWords splits a line into words, separated by whitespace or commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

var (
	charRegexp  = regexp.MustCompile(`'\\?[^']'`)
	parenRegexp = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Escaped character literals.
var charEscape = map[byte]byte{
	'\\': '\\',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'0':  0,
	'e':  0x1b,
}

// charValue replaces a 'c' or '\c' literal with its decimal value.
// Unknown escapes are left as is.
func charValue(literal string) string {
	body := literal[1 : len(literal)-1]

	switch {
	case len(body) == 1:
		return strconv.Itoa(int(body[0]))
	case len(body) == 2 && body[0] == '\\':
		if c, ok := charEscape[body[1]]; ok {
			return strconv.Itoa(int(c))
		}
	}

	return literal
}

// expandLiterals replaces character literals and $(...) expressions with
// their values.
func (asm *Assembler) expandLiterals(line string) (text string, err error) {
	text = charRegexp.ReplaceAllStringFunc(line, charValue)
	text = parenRegexp.ReplaceAllStringFunc(text, func(expr string) string {
		if err != nil {
			return expr
		}
		var value int64
		value, err = asm.parenEval(expr[2 : len(expr)-1])
		return strconv.FormatInt(value, 10)
	})

	return
}

// operand resolves an operand word to an equate, or to the address of a
// label defined on an earlier line. Register names are never taken as labels.
func (asm *Assembler) operand(word string) string {
	if equate, ok := asm.Equate[word]; ok {
		return equate
	}

	if _, ok := AbiRegister(word); ok {
		return word
	}

	if addr, ok := asm.Label[word]; ok {
		return fmt.Sprintf("%#x", addr)
	}

	return word
}

// defineEquate handles the operands of `.equ NAME VALUE`.
func (asm *Assembler) defineEquate(args []string) (err error) {
	if len(args) != 2 {
		err = ErrEquateSyntax
		return
	}

	if _, ok := asm.Equate[args[0]]; ok {
		err = ErrEquateDuplicate
		return
	}

	asm.Equate[args[0]] = args[1]

	return
}

// defineLabels binds each leading `name:` word to the current address,
// and returns the remaining words.
func (asm *Assembler) defineLabels(words []string) (rest []string, err error) {
	rest = words
	for len(rest) > 0 && strings.HasSuffix(rest[0], ":") {
		label := strings.TrimSuffix(rest[0], ":")
		if len(label) == 0 {
			err = ErrLabelSyntax
			return
		}
		if _, ok := asm.Label[label]; ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.currentPc()
		rest = rest[1:]
	}

	return
}

// macroArg binds a macro argument. Register arguments are bound by their
// xN name, so `fp`, `s0` and `x8` expand identically.
func macroArg(arg string) string {
	if reg, ok := AbiRegister(arg); ok {
		return fmt.Sprintf("x%d", reg)
	}

	return arg
}

// expandMacro assembles the body of macro, with its arguments bound as equates.
// `@` in the body expands to a prefix unique to each body line, for local labels.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()

	for n, arg := range macro.Args {
		asm.Equate[arg] = macroArg(args[n])
	}

	for n, text := range macro.Lines {
		lineno := macro.LineNo + n
		text = strings.ReplaceAll(text, "@", fmt.Sprintf("%v_%v_", name, lineno))

		var words []string
		words, err = asm.parseLine(text, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}

	return
}

// parseLine resolves a line of assembly into the words of a single
// instruction or directive. Equates, labels and macros are handled here,
// and leave no words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	line, err = asm.expandLiterals(line)
	if err != nil {
		return
	}

	words = splitWords(line)
	if len(words) == 0 {
		return
	}

	if words[0] == ".equ" || words[0] == ".set" {
		err = asm.defineEquate(words[1:])
		words = nil
		return
	}

	words, err = asm.defineLabels(words)
	if err != nil || len(words) == 0 {
		return
	}

	if equate, ok := asm.Equate[words[0]]; ok {
		words[0] = equate
	}
	for n := 1; n < len(words); n++ {
		words[n] = asm.operand(words[n])
	}

	if macro, ok := asm.Macro[words[0]]; ok {
		err = asm.expandMacro(words[0], macro, words[1:])
		words = nil
	}

	return
}

// currentPc gets the address of the next opcode.
func (asm *Assembler) currentPc() uint64 {
	if len(asm.Opcode) == 0 {
		return bus.DRAM_BASE
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Pc + uint64(len(last.Codes))*INSTRUCTION_SIZE
}

// defineMacro handles `.macro NAME arg...` and `.endm` lines.
// Lines between them are collected into the open macro.
// Returns true if the line was consumed.
func (asm *Assembler) defineMacro(open **Macro, line string, words []string, lineno int) (ok bool, err error) {
	directive := ""
	if len(words) > 0 {
		directive = words[0]
	}

	switch {
	case directive == ".macro":
		switch {
		case *open != nil:
			err = ErrMacroNesting
		case len(words) < 2:
			err = ErrMacroSyntax
		case asm.Macro[words[1]] != nil:
			err = ErrMacroDuplicate
		default:
			*open = &Macro{LineNo: lineno + 1, Args: words[2:]}
			asm.Macro[words[1]] = *open
		}
		return true, err
	case directive == ".endm":
		if *open == nil {
			return true, ErrMacroLonelyEndm
		}
		*open = nil
		return true, nil
	case *open != nil:
		(*open).Lines = append((*open).Lines, line)
		return true, nil
	}

	return false, nil
}

// Parse parses an input stream into a Program containing opcodes.
//
// The assembler is single pass: a label may be used as an operand, or in
// a $(...) expression, only after the line that defines it.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint64, 16)
	asm.Opcode = asm.Opcode[:0]
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++
		text := scanner.Text()
		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))

		var consumed bool
		consumed, err = asm.defineMacro(&macro, line, splitWords(line), lineno)
		if err != nil {
			return
		}
		if consumed {
			continue
		}

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
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

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
		Label:   maps.Clone(asm.Label),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Pc: asm.currentPc(), Words: initial_words, Codes: codes}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	if ignoredDirective[words[0]] {
		return
	}

	// Pseudo-instruction substitutions
	switch {
	case len(words) == 1 && words[0] == "nop":
		// nop => addi x0, x0, 0
		words = []string{"addi", "x0", "x0", "0"}
	case len(words) == 3 && words[0] == "mv":
		// mv rd, rs => addi rd, rs, 0
		words = []string{"addi", words[1], words[2], "0"}
	case len(words) == 3 && words[0] == "li":
		// li rd, imm => addi rd, x0, imm
		words = []string{"addi", words[1], "x0", words[2]}
	default:
		// unchanged
	}

	switch words[0] {
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value < -int64(0x80000000) || value > 0xffffffff {
				err = fmt.Errorf("%w: %v", ErrImmediateRange, value)
				return
			}
			codes = append(codes, Code(uint32(value)))
		}
	case "addi":
		if len(words) < 4 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 4 {
			err = ErrOpcodeExtraArgs
			return
		}
		var rd, rs1 int
		var imm int64
		rd, err = asm.registerOf(words[1])
		if err != nil {
			return
		}
		rs1, err = asm.registerOf(words[2])
		if err != nil {
			return
		}
		imm, err = asm.immediateOf(words[3])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAddi(rd, rs1, imm))
	case "add":
		if len(words) < 4 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 4 {
			err = ErrOpcodeExtraArgs
			return
		}
		var regs [3]int
		for n := range regs {
			regs[n], err = asm.registerOf(words[1+n])
			if err != nil {
				return
			}
		}
		codes = append(codes, MakeCodeAdd(regs[0], regs[1], regs[2]))
	default:
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, words[0])
		return
	}

	return
}
