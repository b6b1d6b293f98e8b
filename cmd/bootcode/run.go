package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bootcode/internal/diag"
	"bootcode/internal/diagfmt"
	"bootcode/internal/trace"
	"bootcode/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [file]",
	Short: "Execute a listing and report how it terminates",
	Long: `Run the listing once without modification and print the accumulator and
terminal status. For a looping program the accumulator is the value just
before any instruction would execute a second time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExecution,
}

func init() {
	runCmd.Flags().Bool("vm-trace", false, "enable VM execution tracing")
	runCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type runPayload struct {
	Status string `json:"status"`
	Acc    int64  `json:"acc"`
	PC     int    `json:"pc"`
	Steps  int    `json:"steps"`
}

func runExecution(cmd *cobra.Command, args []string) error {
	vmTrace, err := cmd.Flags().GetBool("vm-trace")
	if err != nil {
		return fmt.Errorf("failed to get vm-trace flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	pl, err := loadProgram(cmd, args)
	if err != nil {
		return err
	}

	var tracer *vm.Tracer
	if vmTrace {
		tracer = vm.NewTracer(cmd.ErrOrStderr(), pl.files)
	}

	ctx := cmd.Context()
	span, _ := trace.StartSpan(ctx, trace.ScopePhase, "run")
	end := beginPhase("run")
	m := vm.New(pl.prog, vm.Options{Trace: tracer})
	st := m.Run()
	span.WithExtra("acc", fmt.Sprint(st.Acc)).End(st.Status.String())
	end(st.Status.String())
	sess.timer.Add("steps", int64(m.Executed()))

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runPayload{Status: st.Status.String(), Acc: st.Acc, PC: st.PC, Steps: m.Executed()})
	}

	colored, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}
	printRunState(cmd.OutOrStdout(), st, m.Executed(), colored)

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	if d, ok := explainTermination(pl, m); ok && !quiet {
		bag := diag.NewBag(1)
		bag.Add(d)
		if err := printDiagnostics(cmd, &parsedListing{files: pl.files, bag: bag}, diagfmt.PrettyOpts{ShowNotes: true}); err != nil {
			return err
		}
	}
	return nil
}

func printRunState(out io.Writer, st vm.State, steps int, colored bool) {
	c := statusColor(st.Status)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	fmt.Fprintf(out, "status: %s\n", c.Sprint(st.Status))
	fmt.Fprintf(out, "acc:    %d\n", st.Acc)
	fmt.Fprintf(out, "pc:     %d\n", st.PC)
	fmt.Fprintf(out, "steps:  %d\n", steps)
}

func statusColor(s vm.Status) *color.Color {
	switch s {
	case vm.StatusSuccess:
		return color.New(color.FgGreen, color.Bold)
	case vm.StatusInfiniteLoop:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// explainTermination builds a warning that points at the instruction which
// ended a non-successful run.
func explainTermination(pl *parsedListing, m *vm.Machine) (diag.Diagnostic, bool) {
	st := m.State()
	tr := m.Trace()
	if st.Status == vm.StatusSuccess || tr.Len() == 0 {
		return diag.Diagnostic{}, false
	}
	last := tr.At(tr.Len() - 1).PC
	in := pl.prog.At(last)

	switch st.Status {
	case vm.StatusInfiniteLoop:
		d := diag.New(diag.SevWarning, diag.RunInfiniteLoop, in.Span,
			fmt.Sprintf("%s at pc %d leads back to pc %d, which already ran (acc=%d)", in, last, st.PC, st.Acc))
		return d.WithNote(pl.prog.At(st.PC).Span, "first executed here"), true
	case vm.StatusCrashed:
		return diag.New(diag.SevWarning, diag.RunCrashed, in.Span,
			fmt.Sprintf("%s at pc %d jumps before the first instruction", in, last)), true
	case vm.StatusOutOfBounds:
		return diag.New(diag.SevWarning, diag.RunOutOfBounds, in.Span,
			fmt.Sprintf("%s at pc %d jumps past the end of the program (n=%d)", in, last, pl.prog.Len())), true
	default:
		return diag.Diagnostic{}, false
	}
}
