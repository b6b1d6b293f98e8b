package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONBasic(t *testing.T) {
	bag, fs := parseBag(t, "boot.txt", "nop +0\njmp\n")

	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, IncludeNotes: true, IncludeFixes: true, IncludePreviews: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}

	want := DiagnosticsOutput{
		Count: 1,
		Diagnostics: []DiagnosticJSON{{
			Severity: "ERROR",
			Code:     "ASM1002",
			Message:  "jmp needs a signed integer operand",
			Location: LocationJSON{File: "boot.txt", StartByte: 7, EndByte: 10, StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 4},
			Fixes: []FixJSON{{
				Title: "add operand",
				Edits: []FixEditJSON{{
					Location:    LocationJSON{File: "boot.txt", StartByte: 10, EndByte: 10, StartLine: 2, StartCol: 4, EndLine: 2, EndCol: 4},
					NewText:     " +0",
					BeforeLines: []string{"jmp"},
					AfterLines:  []string{"jmp +0"},
				}},
			}},
		}},
	}
	if diff := cmp.Diff(want, output); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := parseBag(t, "boot.txt", "mov +1\nfoo +2\nbar +3\n")

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("positions must be omitted without IncludePositions: %+v", out.Diagnostics[0].Location)
	}
	if out.Diagnostics[0].Notes != nil || out.Diagnostics[0].Fixes != nil {
		t.Fatalf("notes and fixes must be omitted: %+v", out.Diagnostics[0])
	}
}
