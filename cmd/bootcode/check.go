package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bootcode/internal/diag"
	"bootcode/internal/diagfmt"
	"bootcode/internal/fix"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [file]",
	Short: "Assemble a listing and report diagnostics",
	Long: `Parse the listing without running it. With --fix the suggested edits
(lowercase mnemonics, missing operands, trailing tokens) are written back.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("notes", true, "include notes")
	checkCmd.Flags().Bool("suggest", false, "show suggested fixes")
	checkCmd.Flags().Bool("preview", false, "show a before/after preview of fixes")
	checkCmd.Flags().Bool("fullpath", false, "print absolute paths")
	checkCmd.Flags().Bool("fix", false, "apply suggested fixes to the file")
}

type checkOptions struct {
	format    string
	withNotes bool
	suggest   bool
	preview   bool
	pathMode  diagfmt.PathMode
	apply     bool
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	flags := cmd.Flags()
	format, err := flags.GetString("format")
	if err != nil {
		return checkOptions{}, err
	}
	opts := checkOptions{format: strings.ToLower(format)}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return checkOptions{}, fmt.Errorf("unsupported format %q (must be pretty, short or json)", format)
	}
	if opts.withNotes, err = flags.GetBool("notes"); err != nil {
		return checkOptions{}, err
	}
	if opts.suggest, err = flags.GetBool("suggest"); err != nil {
		return checkOptions{}, err
	}
	if opts.preview, err = flags.GetBool("preview"); err != nil {
		return checkOptions{}, err
	}
	if opts.apply, err = flags.GetBool("fix"); err != nil {
		return checkOptions{}, err
	}
	fullPath, err := flags.GetBool("fullpath")
	if err != nil {
		return checkOptions{}, err
	}
	if fullPath {
		opts.pathMode = diagfmt.PathModeAbsolute
	}
	return opts, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := readCheckOptions(cmd)
	if err != nil {
		return err
	}
	path, err := resolveInput(args, sess.manifest)
	if err != nil {
		return err
	}

	pl, err := parseListing(cmd, path)
	if err != nil {
		return err
	}

	if opts.apply && pl.bag.Len() > 0 {
		res, applyErr := fix.Apply(pl.files, pl.bag.Items(), fix.ApplyOptions{Write: true})
		if applyErr != nil && !errors.Is(applyErr, fix.ErrNoFixes) {
			return fmt.Errorf("fix: %w", applyErr)
		}
		printApplyResult(cmd, res)
		if len(res.Applied) > 0 {
			// перечитываем файл: оставшиеся ошибки считаются по новому содержимому
			if pl, err = parseListing(cmd, path); err != nil {
				return err
			}
		}
	}

	if err := renderCheck(cmd, pl, opts); err != nil {
		return err
	}
	if pl.bag.HasErrors() {
		return &exitError{code: 1}
	}
	return nil
}

func renderCheck(cmd *cobra.Command, pl *parsedListing, opts checkOptions) error {
	out := cmd.OutOrStdout()
	showFixes := opts.suggest || opts.preview
	switch opts.format {
	case "short":
		if s := diag.FormatShortDiagnostics(pl.bag.Items(), pl.files, opts.withNotes); s != "" {
			fmt.Fprintln(out, s)
		}
	case "json":
		return diagfmt.JSON(out, pl.bag, pl.files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			IncludeNotes:     opts.withNotes,
			IncludeFixes:     showFixes,
			IncludePreviews:  opts.preview,
		})
	default:
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, pl.bag, pl.files, diagfmt.PrettyOpts{
			Color:       colored,
			PathMode:    opts.pathMode,
			ShowNotes:   opts.withNotes,
			ShowFixes:   showFixes,
			ShowPreview: opts.preview,
		})
		if pl.bag.Len() == 0 {
			fmt.Fprintf(out, "%s: ok, %d instructions\n", pl.file.Path, pl.prog.Len())
		}
	}
	return nil
}

func printApplyResult(cmd *cobra.Command, res *fix.ApplyResult) {
	if res == nil {
		return
	}
	out := cmd.ErrOrStderr()
	for _, a := range res.Applied {
		fmt.Fprintf(out, "fixed %s: %s (%s)\n", a.PrimaryPath, a.Title, a.Code.ID())
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", s.Title, s.Reason)
	}
	if len(res.Applied) == 0 {
		fmt.Fprintln(out, "no applicable fixes found")
	}
}
