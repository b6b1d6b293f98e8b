package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bootcode/internal/vm"
)

var debugCmd = &cobra.Command{
	Use:   "debug [flags] [file]",
	Short: "Step through a listing with breakpoints and flips",
	Long: `Start a debugger session over the listing. Commands are read from the
terminal, from --script, or from stdin when it is not a terminal. Type
"help" for the command list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().String("script", "", "read debugger commands from this file")
	debugCmd.Flags().IntSlice("break", nil, "set breakpoints at these instruction indices")
	debugCmd.Flags().Bool("vm-trace", false, "also print every executed instruction")
}

func runDebug(cmd *cobra.Command, args []string) error {
	scriptPath, err := cmd.Flags().GetString("script")
	if err != nil {
		return fmt.Errorf("failed to get script flag: %w", err)
	}
	breaks, err := cmd.Flags().GetIntSlice("break")
	if err != nil {
		return fmt.Errorf("failed to get break flag: %w", err)
	}
	vmTrace, err := cmd.Flags().GetBool("vm-trace")
	if err != nil {
		return fmt.Errorf("failed to get vm-trace flag: %w", err)
	}

	pl, err := loadProgram(cmd, args)
	if err != nil {
		return err
	}

	var (
		in          io.Reader = cmd.InOrStdin()
		interactive bool
	)
	if scriptPath != "" {
		// #nosec G304 -- path is provided by the user
		f, err := os.Open(scriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close() //nolint:errcheck
		in = f
	} else if in == os.Stdin {
		interactive = isTerminal(os.Stdin)
	}

	var tracer *vm.Tracer
	if vmTrace {
		tracer = vm.NewTracer(cmd.ErrOrStderr(), pl.files)
	}
	m := vm.New(pl.prog, vm.Options{Trace: tracer})
	dbg := vm.NewDebugger(m, pl.files, in, cmd.OutOrStdout(), interactive)
	for _, idx := range breaks {
		if _, err := dbg.Breakpoints().AddIndex(idx); err != nil {
			return fmt.Errorf("--break %d: %w", idx, err)
		}
	}

	end := beginPhase("debug")
	res := dbg.Run()
	end(res.Final.Status.String())
	sess.timer.Add("steps", int64(m.Executed()))
	return nil
}
