package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bootcode/internal/logs"
	"bootcode/internal/observ"
)

// session holds per-invocation state shared by subcommands.
type session struct {
	manifest *projectManifest
	logger   *logs.Logger
	timer    *observ.Timer
	cleanups []func()
}

var sess = &session{}

// setupSession loads bootcode.toml and wires logging, tracing, profiling
// and timings before any subcommand runs.
func setupSession(cmd *cobra.Command, _ []string) error {
	manifest, _, err := loadProjectManifest(".")
	if err != nil {
		return err
	}
	sess.manifest = manifest

	if err := setupLogging(cmd, manifest); err != nil {
		return err
	}

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	sess.cleanups = append(sess.cleanups, traceCleanup)

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	sess.cleanups = append(sess.cleanups, profCleanup)

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if showTimings {
		sess.timer = observ.NewTimer()
		sess.cleanups = append(sess.cleanups, func() { printTimings(cmd.ErrOrStderr(), sess.timer) })
	}
	return nil
}

// closeSession runs cleanups in reverse order and closes the logger.
func closeSession() {
	for i := len(sess.cleanups) - 1; i >= 0; i-- {
		sess.cleanups[i]()
	}
	sess.cleanups = nil
	if err := sess.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "log: close error: %v\n", err)
	}
}

func setupLogging(cmd *cobra.Command, manifest *projectManifest) error {
	root := cmd.Root()

	levelStr, err := root.PersistentFlags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if !root.PersistentFlags().Changed("log-level") && manifest != nil && strings.TrimSpace(manifest.Config.Log.Level) != "" {
		levelStr = manifest.Config.Log.Level
	}
	quiet, err := root.PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	logFile, err := root.PersistentFlags().GetString("log-file")
	if err != nil {
		return fmt.Errorf("failed to get log-file flag: %w", err)
	}
	journal, err := root.PersistentFlags().GetBool("log-journal")
	if err != nil {
		return fmt.Errorf("failed to get log-journal flag: %w", err)
	}

	level, err := logs.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	if quiet && level < slog.LevelError {
		level = slog.LevelError
	}

	logger, err := logs.New(logs.Options{
		Level:   level,
		Stderr:  cmd.ErrOrStderr(),
		File:    logFile,
		Journal: journal,
	})
	if err != nil {
		return err
	}
	sess.logger = logger

	ctx := logs.WithLogger(cmd.Context(), logger.Logger)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
	if manifest != nil {
		logger.Debug("using project manifest", slog.String("path", manifest.Path))
	}
	return nil
}
