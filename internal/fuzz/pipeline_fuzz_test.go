package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"bootcode/internal/asm"
	"bootcode/internal/diag"
	"bootcode/internal/repair"
	"bootcode/internal/source"
	"bootcode/internal/testkit"
	"bootcode/internal/vm"
)

const maxFuzzInput = 1 << 12 // 4 KiB, поиск ремонта квадратичен по длине

// searchTimeout is the maximum time allowed for the whole pipeline on one input.
const searchTimeout = 5 * time.Second

func FuzzAsmParse(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.boot", clampInput(input))
		file := fs.Get(fileID)

		bag := diag.NewBag(128)
		p, ok := asm.Parse(file, diag.BagReporter{Bag: bag})
		if ok != !bag.HasErrors() {
			t.Fatalf("ok=%v but HasErrors=%v", ok, bag.HasErrors())
		}
		if !ok {
			return
		}
		if err := testkit.CheckSpanInvariants(p, file); err != nil {
			t.Fatal(err)
		}
	})
}

func FuzzRunAndRepair(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.boot", clampInput(input))
		p, ok := asm.Parse(fs.Get(fileID), diag.BagReporter{Bag: diag.NewBag(16)})
		if !ok {
			return
		}

		m := vm.New(p, vm.Options{})
		m.Run()
		if err := testkit.CheckRunInvariants(m); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		base, baseErr := repair.Search(ctx, p, repair.Options{Strategy: repair.StrategyBaseline})
		inc, incErr := repair.Search(ctx, p, repair.Options{Strategy: repair.StrategyIncremental})
		if errors.Is(baseErr, context.DeadlineExceeded) || errors.Is(incErr, context.DeadlineExceeded) {
			t.Fatalf("repair search did not finish within %s", searchTimeout)
		}
		if errors.Is(baseErr, repair.ErrUnrepairable) != errors.Is(incErr, repair.ErrUnrepairable) {
			t.Fatalf("strategies disagree: baseline=%v incremental=%v", baseErr, incErr)
		}
		if baseErr == nil && (base.Index != inc.Index || base.Final != inc.Final) {
			t.Fatalf("strategies disagree: baseline=%+v incremental=%+v", base, inc)
		}
	})
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
