package asm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"bootcode/internal/diag"
	"bootcode/internal/program"
	"bootcode/internal/source"
	"bootcode/internal/testkit"
)

func parseText(t *testing.T, text string) (*program.Program, bool, *diag.Bag, *source.FileSet, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("boot.txt", []byte(text))
	bag := diag.NewBag(32)
	p, ok := Parse(fs.Get(id), diag.BagReporter{Bag: bag})
	return p, ok, bag, fs, fs.Get(id)
}

func TestParseScenarioA(t *testing.T) {
	text := "nop +0\nacc +1\njmp +4\nacc +3\njmp -3\nacc -99\nacc +1\njmp -4\nacc +6\n"
	p, ok, bag, _, file := parseText(t, text)
	if !ok || bag.Len() != 0 {
		t.Fatalf("parse failed: %+v", bag.Items())
	}
	if p.String() != text {
		t.Fatalf("canonical listing differs:\n%s", p.String())
	}
	if err := testkit.CheckSpanInvariants(p, file); err != nil {
		t.Fatal(err)
	}
	if got := p.At(5).Span; got.Start != 35 || got.End != 42 {
		t.Fatalf("span of acc -99 = %v", got)
	}
}

func TestParseLenientLayout(t *testing.T) {
	text := "# boot code\r\n\n  nop   0\r\n\tjmp\t-1   # back\r\nacc 12"
	p, ok, bag, _, file := parseText(t, text)
	if !ok {
		t.Fatalf("parse failed: %+v", bag.Items())
	}
	want := []program.Instruction{program.Nop(0), program.Jmp(-1), program.Acc(12)}
	got := p.Instructions()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b program.Instruction) bool { return a.Same(b) })); diff != "" {
		t.Fatalf("instructions mismatch (-want +got):\n%s", diff)
	}
	if err := testkit.CheckSpanInvariants(p, file); err != nil {
		t.Fatal(err)
	}
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "unknown opcode",
			text: "hlt +1\n",
			want: "error ASM1001 boot.txt:1:1 unknown opcode \"hlt\"\n" +
				"note ASM1001 boot.txt:1:1 expected one of acc, jmp, nop",
		},
		{
			name: "uppercase opcode",
			text: "nop +0\nJMP -1\n",
			want: "error ASM1001 boot.txt:2:1 unknown opcode \"JMP\"\n" +
				"fix ASM1001 boot.txt:2:1 use lowercase mnemonic: \"jmp\"",
		},
		{
			name: "missing operand",
			text: "acc +1\n  nop\n",
			want: "error ASM1002 boot.txt:2:3 nop needs a signed integer operand\n" +
				"fix ASM1002 boot.txt:2:6 add operand: \" +0\"",
		},
		{
			name: "bad operand",
			text: "acc 1x\njmp +-2\n",
			want: "error ASM1003 boot.txt:1:5 bad operand \"1x\": expected digits\n" +
				"error ASM1003 boot.txt:2:5 bad operand \"+-2\": expected digits",
		},
		{
			name: "operand out of range",
			text: "acc +99999999999999999999\n",
			want: "error ASM1003 boot.txt:1:5 bad operand \"+99999999999999999999\": value out of range",
		},
		{
			name: "trailing tokens",
			text: "jmp +1 +2 +3\n",
			want: "fix ASM1004 boot.txt:1:7 remove trailing tokens: \"\"\n" +
				"error ASM1004 boot.txt:1:8 unexpected \"+2\" after operand",
		},
		{
			name: "empty program",
			text: "# nothing here\n\n",
			want: "error ASM1005 boot.txt:1:1 listing contains no instructions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok, bag, fs, _ := parseText(t, tt.text)
			if ok || p != nil {
				t.Fatal("expected parse failure")
			}
			if !bag.HasErrors() {
				t.Fatal("bag has no errors")
			}
			got := diag.FormatShortDiagnostics(bag.Items(), fs, true)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseOperand(t *testing.T) {
	for in, want := range map[string]int64{"+0": 0, "0": 0, "-4": -4, "+7": 7, "-9223372036854775808": -9223372036854775808} {
		got, err := parseOperand(in)
		if err != nil || got != want {
			t.Errorf("parseOperand(%q) = %d, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "+", "--1", "1-", "0x10", "1_000"} {
		if _, err := parseOperand(in); err == nil {
			t.Errorf("parseOperand(%q) succeeded", in)
		}
	}
}

func TestParseRejectsOversizedListing(t *testing.T) {
	saved := maxListingBytes
	maxListingBytes = 8
	t.Cleanup(func() { maxListingBytes = saved })

	p, ok, bag, _, _ := parseText(t, "nop +0\nacc +1\n")
	if ok || p != nil {
		t.Fatal("oversized listing must not assemble")
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.AsmListingTooLong {
		t.Fatalf("diagnostics = %+v", items)
	}
	if want := "listing is 14 bytes, the limit is 8"; items[0].Message != want {
		t.Fatalf("message = %q, want %q", items[0].Message, want)
	}
}
