// Package asm parses boot code listings into programs.
//
// A listing holds one instruction per line: a mnemonic (acc, jmp, nop),
// whitespace and a signed decimal operand. Blank lines are skipped and '#'
// starts a comment that runs to the end of the line.
package asm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"bootcode/internal/diag"
	"bootcode/internal/program"
	"bootcode/internal/source"
)

// maxListingBytes bounds a listing so that every offset fits in a span.
var maxListingBytes int64 = math.MaxUint32

// Parse builds a program from file. Every problem is reported to reporter;
// ok is false when any error was reported, in which case the program is nil.
func Parse(file *source.File, reporter diag.Reporter) (*program.Program, bool) {
	p := &parser{file: file, reporter: reporter}
	return p.parse()
}

type token struct {
	text       string
	start, end uint32
}

func (t token) span(file source.FileID) source.Span {
	return source.Span{File: file, Start: t.start, End: t.end}
}

type parser struct {
	file     *source.File
	reporter diag.Reporter
	errors   int
}

func (p *parser) parse() (*program.Program, bool) {
	content := p.file.Content
	if int64(len(content)) > maxListingBytes {
		diag.ReportError(p.reporter, diag.AsmListingTooLong, source.Span{File: p.file.ID},
			fmt.Sprintf("listing is %d bytes, the limit is %d", len(content), maxListingBytes)).Emit()
		return nil, false
	}
	var instrs []program.Instruction

	lineStart := 0
	for lineStart <= len(content) {
		lineEnd := lineStart
		for lineEnd < len(content) && content[lineEnd] != '\n' {
			lineEnd++
		}
		if in, ok := p.parseLine(lineStart, string(content[lineStart:lineEnd])); ok {
			instrs = append(instrs, in)
		}
		lineStart = lineEnd + 1
	}

	if len(instrs) == 0 && p.errors == 0 {
		end := p.offset(len(content))
		diag.ReportError(p.reporter, diag.AsmEmptyProgram, source.Span{File: p.file.ID, Start: 0, End: end},
			"listing contains no instructions").Emit()
		p.errors++
	}
	if p.errors > 0 {
		return nil, false
	}
	return program.New(instrs), true
}

// parseLine reports problems itself; ok is false for blank lines and errors.
func (p *parser) parseLine(base int, line string) (program.Instruction, bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	toks := p.tokenize(base, line)
	if len(toks) == 0 {
		return program.Instruction{}, false
	}

	mn := toks[0]
	op, known := program.ParseOpcode(mn.text)
	if !known {
		b := diag.ReportError(p.reporter, diag.AsmUnknownOpcode, mn.span(p.file.ID),
			fmt.Sprintf("unknown opcode %q", mn.text))
		if lower, ok := program.ParseOpcode(strings.ToLower(mn.text)); ok {
			b.WithFix("use lowercase mnemonic", diag.FixEdit{Span: mn.span(p.file.ID), NewText: lower.String()})
		} else {
			b.WithNote(mn.span(p.file.ID), "expected one of acc, jmp, nop")
		}
		b.Emit()
		p.errors++
		return program.Instruction{}, false
	}

	if len(toks) < 2 {
		diag.ReportError(p.reporter, diag.AsmMissingOperand, mn.span(p.file.ID),
			fmt.Sprintf("%s needs a signed integer operand", op)).
			WithFix("add operand", diag.FixEdit{
				Span:    source.Span{File: p.file.ID, Start: mn.end, End: mn.end},
				NewText: " +0",
			}).Emit()
		p.errors++
		return program.Instruction{}, false
	}

	arg, err := parseOperand(toks[1].text)
	if err != nil {
		diag.ReportError(p.reporter, diag.AsmBadOperand, toks[1].span(p.file.ID),
			fmt.Sprintf("bad operand %q: %v", toks[1].text, err)).Emit()
		p.errors++
		return program.Instruction{}, false
	}

	if len(toks) > 2 {
		extra := source.Span{File: p.file.ID, Start: toks[2].start, End: toks[len(toks)-1].end}
		diag.ReportError(p.reporter, diag.AsmTrailingTokens, extra,
			fmt.Sprintf("unexpected %q after operand", toks[2].text)).
			WithFix("remove trailing tokens", diag.FixEdit{
				Span: source.Span{File: p.file.ID, Start: toks[1].end, End: toks[len(toks)-1].end},
			}).Emit()
		p.errors++
		return program.Instruction{}, false
	}

	return program.Instruction{
		Op:   op,
		Arg:  arg,
		Span: source.Span{File: p.file.ID, Start: mn.start, End: toks[1].end},
	}, true
}

func (p *parser) tokenize(base int, line string) []token {
	var toks []token
	i := 0
	for i < len(line) {
		if isSpace(line[i]) {
			i++
			continue
		}
		j := i
		for j < len(line) && !isSpace(line[j]) {
			j++
		}
		toks = append(toks, token{text: line[i:j], start: p.offset(base + i), end: p.offset(base + j)})
		i = j
	}
	return toks
}

// offset converts a byte offset; parse has already checked the listing size.
func (p *parser) offset(off int) uint32 {
	v, err := safecast.Conv[uint32](off)
	if err != nil {
		return math.MaxUint32
	}
	return v
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f'
}

var (
	errNoDigits   = errors.New("expected digits")
	errOutOfRange = errors.New("value out of range")
)

// parseOperand accepts an optional sign followed by decimal digits.
func parseOperand(s string) (int64, error) {
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" {
		return 0, errNoDigits
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, errNoDigits
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errOutOfRange
	}
	return v, nil
}
