package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bootcode/internal/repair"
)

const manifestName = "bootcode.toml"

const noManifestMessage = "no input file given and no bootcode.toml found\nplease specify the listing explicitly, e.g.:\n  bootcode repair path/to/input.boot"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Program programConfig `toml:"program"`
	Repair  repairConfig  `toml:"repair"`
	Log     logConfig     `toml:"log"`
}

type programConfig struct {
	Main string `toml:"main"`
}

type repairConfig struct {
	Strategy string `toml:"strategy"`
	Jobs     int    `toml:"jobs"`
	Cache    *bool  `toml:"cache"`
}

type logConfig struct {
	Level string `toml:"level"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return projectConfig{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("program", "main") && strings.TrimSpace(cfg.Program.Main) == "" {
		return projectConfig{}, fmt.Errorf("%s: [program].main is empty", path)
	}
	if meta.IsDefined("repair", "strategy") {
		if _, err := repair.ParseStrategy(cfg.Repair.Strategy); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [repair].strategy: %w", path, err)
		}
	}
	if cfg.Repair.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [repair].jobs must not be negative", path)
	}
	return cfg, nil
}

// resolveInput picks the listing to load: the explicit argument, or
// [program].main of the manifest relative to its directory.
func resolveInput(args []string, manifest *projectManifest) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if manifest == nil || strings.TrimSpace(manifest.Config.Program.Main) == "" {
		return "", errors.New(noManifestMessage)
	}
	mainPath := filepath.Join(manifest.Root, filepath.FromSlash(strings.TrimSpace(manifest.Config.Program.Main)))
	info, err := os.Stat(mainPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: [program].main path does not exist: %s", manifest.Path, mainPath)
		}
		return "", fmt.Errorf("%s: failed to stat [program].main: %w", manifest.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: [program].main must be a file", manifest.Path)
	}
	return mainPath, nil
}
