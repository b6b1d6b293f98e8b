package fix_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bootcode/internal/asm"
	"bootcode/internal/diag"
	"bootcode/internal/fix"
	"bootcode/internal/source"
)

func TestApplyAssemblerFixes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("boot.txt", []byte("ACC +1\nnop\njmp +2 x y\n"))
	bag := diag.NewBag(16)
	if _, ok := asm.Parse(fs.Get(id), diag.BagReporter{Bag: bag}); ok {
		t.Fatal("expected parse errors")
	}

	res, err := fix.Apply(fs, bag.Items(), fix.ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 3 || len(res.Skipped) != 0 {
		t.Fatalf("applied=%d skipped=%+v", len(res.Applied), res.Skipped)
	}
	if len(res.FileChanges) != 1 {
		t.Fatalf("changes = %+v", res.FileChanges)
	}
	want := "acc +1\nnop +0\njmp +2\n"
	if diff := cmp.Diff(want, string(res.FileChanges[0].Content)); diff != "" {
		t.Fatalf("content mismatch (-want +got):\n%s", diff)
	}

	fixed := source.NewFileSet()
	fid := fixed.AddVirtual("boot.txt", res.FileChanges[0].Content)
	again := diag.NewBag(16)
	if _, ok := asm.Parse(fixed.Get(fid), diag.BagReporter{Bag: again}); !ok {
		t.Fatalf("fixed listing still fails: %s", diag.FormatShortDiagnostics(again.Items(), fixed, false))
	}
}

func TestApplySkipsConflictingEdits(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("boot.txt", []byte("nop +0\n"))
	mk := func(start, end uint32, text string) diag.Diagnostic {
		sp := source.Span{File: id, Start: start, End: end}
		return diag.NewError(diag.AsmBadOperand, sp, "x").WithFix("edit", diag.FixEdit{Span: sp, NewText: text})
	}
	diags := []diag.Diagnostic{mk(0, 3, "acc"), mk(2, 5, "zz"), mk(7, 9, "oops")}

	res, err := fix.Apply(fs, diags, fix.ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	reasons := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		reasons = append(reasons, s.Reason)
	}
	wantReasons := []string{"conflicts with previously applied edits", "edit span out of range"}
	if diff := cmp.Diff(wantReasons, reasons); diff != "" {
		t.Fatalf("skip reasons mismatch (-want +got):\n%s", diff)
	}
	if got := string(res.FileChanges[0].Content); got != "acc +0\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestApplyWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.txt")
	if err := os.WriteFile(path, []byte("nop\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(4)
	asm.Parse(fs.Get(id), diag.BagReporter{Bag: bag})

	if _, err := fix.Apply(fs, bag.Items(), fix.ApplyOptions{Write: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "nop +0\n" {
		t.Fatalf("file content = %q", data)
	}
}

func TestApplyWithoutFixes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("boot.txt", []byte("nop +0\n"))
	d := diag.NewError(diag.AsmBadOperand, source.Span{File: id, Start: 4, End: 6}, "bad")
	if _, err := fix.Apply(fs, []diag.Diagnostic{d}, fix.ApplyOptions{}); !errors.Is(err, fix.ErrNoFixes) {
		t.Fatalf("err = %v, want ErrNoFixes", err)
	}
}
