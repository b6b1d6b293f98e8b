package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bootcode/internal/cache"
	"bootcode/internal/logs"
	"bootcode/internal/repair"
	"bootcode/internal/trace"
)

var repairCmd = &cobra.Command{
	Use:   "repair [flags] [file]",
	Short: "Find the single jmp/nop flip that makes the listing terminate",
	Long: `Try flipping each jmp and nop in index order and report the first flip
whose program reaches the end of the listing. Exits with status 2 when no
single flip helps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().String("strategy", "", "search strategy (baseline|incremental|parallel)")
	repairCmd.Flags().Int("jobs", 0, "worker limit for the parallel strategy (0 = GOMAXPROCS)")
	repairCmd.Flags().Bool("cache", true, "reuse and store results in the on-disk cache")
	repairCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	repairCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type repairSettings struct {
	strategy repair.Strategy
	jobs     int
	cache    bool
	ui       uiMode
	format   string
}

type repairPayload struct {
	Unrepairable bool   `json:"unrepairable"`
	Index        int    `json:"index"`
	Original     string `json:"original,omitempty"`
	Patched      string `json:"patched,omitempty"`
	Location     string `json:"location,omitempty"`
	Acc          int64  `json:"acc"`
	PC           int    `json:"pc"`
	Status       string `json:"status,omitempty"`
	Attempts     int    `json:"attempts"`
	Candidates   int    `json:"candidates"`
	Cached       bool   `json:"cached"`
}

// readRepairSettings merges flags with the [repair] section of the manifest.
// Explicit flags win.
func readRepairSettings(cmd *cobra.Command, manifest *projectManifest) (repairSettings, error) {
	var cfg repairConfig
	if manifest != nil {
		cfg = manifest.Config.Repair
	}
	flags := cmd.Flags()

	strategyStr, err := flags.GetString("strategy")
	if err != nil {
		return repairSettings{}, fmt.Errorf("failed to get strategy flag: %w", err)
	}
	if !flags.Changed("strategy") && cfg.Strategy != "" {
		strategyStr = cfg.Strategy
	}
	strategy, err := repair.ParseStrategy(strategyStr)
	if err != nil {
		return repairSettings{}, err
	}

	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return repairSettings{}, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if !flags.Changed("jobs") && cfg.Jobs > 0 {
		jobs = cfg.Jobs
	}
	if jobs < 0 {
		return repairSettings{}, fmt.Errorf("--jobs must not be negative")
	}

	useCache, err := flags.GetBool("cache")
	if err != nil {
		return repairSettings{}, fmt.Errorf("failed to get cache flag: %w", err)
	}
	if !flags.Changed("cache") && cfg.Cache != nil {
		useCache = *cfg.Cache
	}

	uiStr, err := flags.GetString("ui")
	if err != nil {
		return repairSettings{}, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := parseUIMode(uiStr)
	if err != nil {
		return repairSettings{}, err
	}

	format, err := flags.GetString("format")
	if err != nil {
		return repairSettings{}, fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return repairSettings{}, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	return repairSettings{strategy: strategy, jobs: jobs, cache: useCache, ui: mode, format: format}, nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	settings, err := readRepairSettings(cmd, sess.manifest)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	pl, err := loadProgram(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logs.FromContext(ctx)

	var store *cache.Cache
	if settings.cache {
		store, err = cache.Open("bootcode")
		if err != nil {
			log.Warn("repair cache disabled", slog.Any("error", err))
			store = nil
		}
	}
	key := pl.prog.Digest()

	res, cached, searchErr := lookupCached(store, key, pl, log)
	if !cached {
		end := beginPhase("repair")
		opts := repair.Options{
			Strategy: settings.strategy,
			Jobs:     settings.jobs,
			Tracer:   trace.FromContext(ctx),
			Timer:    sess.timer,
		}
		if !quiet && settings.format == "pretty" && settings.ui.showProgress(os.Stdout) {
			res, searchErr = runRepairWithUI(ctx, "repairing "+pl.file.Path, pl.prog, opts)
		} else {
			res, searchErr = repair.Search(ctx, pl.prog, opts)
		}
		end(settings.strategy.String())

		if payload, ok := cache.FromResult(res, searchErr); ok && store != nil {
			if err := store.Put(key, &payload); err != nil {
				log.Warn("failed to store repair result", slog.Any("error", err))
			}
		}
	}

	unrepairable := errors.Is(searchErr, repair.ErrUnrepairable)
	if searchErr != nil && !unrepairable {
		return searchErr
	}

	if settings.format == "json" {
		if err := writeRepairJSON(cmd.OutOrStdout(), pl, res, unrepairable, cached); err != nil {
			return err
		}
	} else {
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		printRepairResult(cmd.OutOrStdout(), pl, res, searchErr, cached, colored)
	}

	if unrepairable {
		return &exitError{code: 2}
	}
	return nil
}

// lookupCached returns a cached outcome for key; the error is the cached
// search error (ErrUnrepairable). Broken or mismatching entries are logged
// and treated as a miss.
func lookupCached(store *cache.Cache, key cache.Key, pl *parsedListing, log *slog.Logger) (repair.Result, bool, error) {
	if store == nil {
		return repair.Result{}, false, nil
	}
	var payload cache.Payload
	hit, err := store.Get(key, &payload)
	if err != nil {
		log.Warn("ignoring unreadable cache entry", slog.Any("error", err))
		return repair.Result{}, false, nil
	}
	if !hit {
		return repair.Result{}, false, nil
	}
	res, err := payload.Result(pl.prog)
	if err != nil && !errors.Is(err, repair.ErrUnrepairable) {
		log.Warn("ignoring stale cache entry", slog.Any("error", err))
		return repair.Result{}, false, nil
	}
	log.Debug("repair result served from cache", slog.String("dir", store.Dir()))
	sess.timer.Add("cache_hits", 1)
	return res, true, err
}

func printRepairResult(out io.Writer, pl *parsedListing, res repair.Result, searchErr error, cached, colored bool) {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{ok, bad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	if searchErr != nil {
		fmt.Fprintf(out, "%s %v\n", bad.Sprint("unrepairable:"), searchErr)
		fmt.Fprintf(out, "candidates: %d\n", len(pl.prog.Candidates()))
		return
	}
	fmt.Fprintf(out, "%s flipped pc=%d %s -> %s (%s)\n", ok.Sprint("repaired:"), res.Index, res.Original, res.Patched, instrLocation(pl, res.Index))
	fmt.Fprintf(out, "acc:      %d\n", res.Final.Acc)
	fmt.Fprintf(out, "attempts: %d\n", res.Attempts)
	if cached {
		fmt.Fprintln(out, "(cached)")
	}
}

func writeRepairJSON(out io.Writer, pl *parsedListing, res repair.Result, unrepairable, cached bool) error {
	payload := repairPayload{
		Unrepairable: unrepairable,
		Index:        -1,
		Candidates:   len(pl.prog.Candidates()),
		Cached:       cached,
	}
	if !unrepairable {
		payload.Index = res.Index
		payload.Original = res.Original.String()
		payload.Patched = res.Patched.String()
		payload.Location = instrLocation(pl, res.Index)
		payload.Acc = res.Final.Acc
		payload.PC = res.Final.PC
		payload.Status = res.Final.Status.String()
		payload.Attempts = res.Attempts
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
