package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"bootcode/internal/asm"
	"bootcode/internal/diag"
	"bootcode/internal/diagfmt"
	"bootcode/internal/logs"
	"bootcode/internal/program"
	"bootcode/internal/source"
	"bootcode/internal/trace"
)

// parsedListing is a loaded file with its diagnostics. prog is nil when the
// listing has errors.
type parsedListing struct {
	files *source.FileSet
	file  *source.File
	bag   *diag.Bag
	prog  *program.Program
}

// parseListing loads path and assembles it. I/O problems are errors,
// assembler problems end up in the bag.
func parseListing(cmd *cobra.Command, path string) (*parsedListing, error) {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	span, _ := trace.StartSpan(ctx, trace.ScopePhase, "parse")
	end := beginPhase("parse")

	files := source.NewFileSet()
	id, err := files.Load(path)
	if err != nil {
		span.End("load failed")
		end("load failed")
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	file := files.Get(id)

	bag := diag.NewBag(maxDiagnostics)
	prog, ok := asm.Parse(file, diag.BagReporter{Bag: bag})
	bag.Sort()
	bag.Dedup()

	note := fmt.Sprintf("%d diagnostics", bag.Len())
	if ok {
		note = strconv.Itoa(prog.Len()) + " instructions"
		span.WithExtra("instructions", strconv.Itoa(prog.Len()))
	}
	span.End(note)
	end(note)

	logs.FromContext(ctx).Debug("listing parsed",
		slog.String("path", file.Path),
		slog.Int("bytes", len(file.Content)),
		slog.Bool("ok", ok),
		slog.Int("diagnostics", bag.Len()))

	return &parsedListing{files: files, file: file, bag: bag, prog: prog}, nil
}

// loadProgram resolves the input, parses it and prints diagnostics. A
// listing with errors yields an exitError with status 1.
func loadProgram(cmd *cobra.Command, args []string) (*parsedListing, error) {
	path, err := resolveInput(args, sess.manifest)
	if err != nil {
		return nil, err
	}
	pl, err := parseListing(cmd, path)
	if err != nil {
		return nil, err
	}
	if pl.bag.Len() > 0 {
		if err := printDiagnostics(cmd, pl, diagfmt.PrettyOpts{ShowNotes: true}); err != nil {
			return nil, err
		}
	}
	if pl.prog == nil {
		return nil, &exitError{code: 1}
	}
	return pl, nil
}

// printDiagnostics renders the bag to stderr in pretty form.
func printDiagnostics(cmd *cobra.Command, pl *parsedListing, opts diagfmt.PrettyOpts) error {
	colored, err := useColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	opts.Color = colored
	diagfmt.Pretty(cmd.ErrOrStderr(), pl.bag, pl.files, opts)
	return nil
}

// instrLocation formats the source position of instruction i, or "pc=i"
// when it has no span.
func instrLocation(pl *parsedListing, i int) string {
	sp := pl.prog.At(i).Span
	if sp.Empty() {
		return "pc=" + strconv.Itoa(i)
	}
	return pl.files.Position(sp)
}
