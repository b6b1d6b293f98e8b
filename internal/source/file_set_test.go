package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("boot.txt", []byte("nop +0"), 0)
	if id1 != 0 {
		t.Errorf("Expected first FileID to be 0, got %d", id1)
	}

	id2 := fs.Add("boot.txt", []byte("acc +1"), 0)
	if id2 != 1 {
		t.Errorf("Expected second FileID to be 1, got %d", id2)
	}

	latestID, exists := fs.GetLatest("boot.txt")
	if !exists {
		t.Fatal("Expected file to exist after Add")
	}
	if latestID != id2 {
		t.Errorf("Expected latest ID to be %d, got %d", id2, latestID)
	}

	// старая версия по-прежнему доступна
	if got := string(fs.Get(id1).Content); got != "nop +0" {
		t.Errorf("Expected first file content to be 'nop +0', got %q", got)
	}
	if fs.Get(42) != nil {
		t.Error("Expected nil for unknown FileID")
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("mem", []byte("nop +0\nacc +1\njmp -1\n"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{6, LineCol{Line: 1, Col: 7}},
		{7, LineCol{Line: 2, Col: 1}},
		{11, LineCol{Line: 2, Col: 5}},
		{14, LineCol{Line: 3, Col: 1}},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off + 1})
		if start != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, start, tt.want)
		}
	}

	if got := fs.Position(Span{File: id, Start: 7, End: 10}); got != "mem:2:1" {
		t.Errorf("Position = %q, want mem:2:1", got)
	}
	if got := fs.Position(Span{}); got != "<no-span>" {
		t.Errorf("Position of empty span = %q", got)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("mem", []byte("nop +0\r\nacc +1\njmp -1"))
	f := fs.Get(id)

	want := []string{"", "nop +0", "acc +1", "jmp -1", ""}
	for line, w := range want {
		if got := f.GetLine(uint32(line)); got != w {
			t.Errorf("GetLine(%d) = %q, want %q", line, got, w)
		}
	}
}

func TestLoadNormalizesInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.txt")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("nop +0\r\nacc +1\r\n")...)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if got := string(f.Content); got != "nop +0\nacc +1\n" {
		t.Errorf("content = %q", got)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("flags = %b, want BOM and CRLF bits", f.Flags)
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	saved := maxFileSize
	maxFileSize = 4
	t.Cleanup(func() { maxFileSize = saved })

	path := filepath.Join(t.TempDir(), "boot.txt")
	if err := os.WriteFile(path, []byte("nop +0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	if _, err := fs.Load(path); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Load error = %v, want ErrFileTooLarge", err)
	}
	if _, ok := fs.GetLatest(path); ok {
		t.Fatal("rejected file must not be registered")
	}
}
