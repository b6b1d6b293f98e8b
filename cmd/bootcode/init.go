package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultInputName = "input.boot"

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a bootcode project",
	Long: `Create a project manifest (bootcode.toml) and a sample listing
(input.boot). If [path] is omitted, initializes the current directory. A
missing directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit writes bootcode.toml and a sample listing into the target
// directory. It refuses to overwrite an existing manifest and keeps an
// existing listing.
func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) == 1 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	manifestPath := filepath.Join(target, manifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(buildDefaultManifest(defaultInputName)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	inputPath := filepath.Join(target, defaultInputName)
	createdInput := false
	if _, err := os.Stat(inputPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(inputPath, []byte(defaultListing()), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", defaultInputName, err)
		}
		createdInput = true
	}

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized bootcode project in %s\n", rel)
	fmt.Fprintf(out, "  - %s\n", manifestName)
	if createdInput {
		fmt.Fprintf(out, "  - %s\n", defaultInputName)
	} else {
		fmt.Fprintf(out, "  - %s (existing)\n", defaultInputName)
	}
	return nil
}

// buildDefaultManifest returns a manifest pointing [program].main at input.
func buildDefaultManifest(input string) string {
	return fmt.Sprintf(`# bootcode project manifest
[program]
main = %q

[repair]
strategy = "baseline"   # baseline|incremental|parallel
jobs = 0                # parallel workers, 0 = GOMAXPROCS
cache = true

[log]
level = "warn"
`, input)
}

// defaultListing is a small program that loops until pc 7 is flipped.
func defaultListing() string {
	return `# acc/jmp/nop listing, one instruction per line
nop +0
acc +1
jmp +4
acc +3
jmp -3
acc -99
acc +1
jmp -4
acc +6
`
}
