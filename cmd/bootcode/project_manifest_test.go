package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadProjectManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, manifestName), buildDefaultManifest("input.boot"))
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, ok, err := loadProjectManifest(nested)
	if err != nil || !ok {
		t.Fatalf("loadProjectManifest: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
	cacheOn := true
	want := projectConfig{
		Program: programConfig{Main: "input.boot"},
		Repair:  repairConfig{Strategy: "baseline", Jobs: 0, Cache: &cacheOn},
		Log:     logConfig{Level: "warn"},
	}
	if diff := cmp.Diff(want, m.Config); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProjectManifestMissing(t *testing.T) {
	m, ok, err := loadProjectManifest(t.TempDir())
	if err != nil {
		t.Fatalf("loadProjectManifest: %v", err)
	}
	if ok || m != nil {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func TestLoadProjectConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "unknown key", data: "[program]\nmain = \"a.boot\"\nentry = 1\n", want: "unknown key program.entry"},
		{name: "empty main", data: "[program]\nmain = \" \"\n", want: "[program].main is empty"},
		{name: "bad strategy", data: "[repair]\nstrategy = \"greedy\"\n", want: "[repair].strategy"},
		{name: "negative jobs", data: "[repair]\njobs = -2\n", want: "[repair].jobs must not be negative"},
		{name: "broken toml", data: "[repair\n", want: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), manifestName)
			writeFile(t, path, tt.data)
			_, err := loadProjectConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestResolveInput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "progs", "main.boot"), "nop +0\n")
	m := &projectManifest{
		Path:   filepath.Join(root, manifestName),
		Root:   root,
		Config: projectConfig{Program: programConfig{Main: "progs/main.boot"}},
	}

	got, err := resolveInput([]string{"explicit.boot"}, m)
	if err != nil || got != "explicit.boot" {
		t.Fatalf("explicit arg: got %q, %v", got, err)
	}

	got, err = resolveInput(nil, m)
	if err != nil {
		t.Fatalf("manifest main: %v", err)
	}
	if want := filepath.Join(root, "progs", "main.boot"); got != want {
		t.Fatalf("manifest main = %q, want %q", got, want)
	}

	if _, err := resolveInput(nil, nil); err == nil || !strings.Contains(err.Error(), "no bootcode.toml found") {
		t.Fatalf("expected missing manifest error, got %v", err)
	}

	m.Config.Program.Main = "progs"
	if _, err := resolveInput(nil, m); err == nil || !strings.Contains(err.Error(), "must be a file") {
		t.Fatalf("expected directory error, got %v", err)
	}

	m.Config.Program.Main = "missing.boot"
	if _, err := resolveInput(nil, m); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestParseUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiAuto, "AUTO": uiAuto, " on ": uiOn, "off": uiOff} {
		got, err := parseUIMode(in)
		if err != nil || got != want {
			t.Fatalf("parseUIMode(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := parseUIMode("sometimes"); err == nil {
		t.Fatal("expected error for invalid mode")
	}
	if !uiOn.showProgress(os.Stdout) || uiOff.showProgress(os.Stdout) {
		t.Fatal("explicit modes must win over TTY detection")
	}
	// a regular file is never a terminal
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if uiAuto.showProgress(f) {
		t.Fatal("auto mode must not draw into a file")
	}
}

func TestDefaultManifestLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, manifestName)
	writeFile(t, path, buildDefaultManifest("input.boot"))

	cfg, err := loadProjectConfig(path)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.Program.Main != "input.boot" || cfg.Repair.Strategy != "baseline" || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Repair.Cache == nil || !*cfg.Repair.Cache {
		t.Fatal("cache must default to enabled")
	}
}
