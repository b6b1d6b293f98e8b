package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"bootcode/internal/diag"
	"bootcode/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyOptions configures how fixes are applied.
type ApplyOptions struct {
	// Write сохраняет изменённые файлы на диск. Без него результат только в памяти.
	Write bool
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	Title       string
	Code        diag.Code
	Message     string
	PrimaryPath string
	EditCount   int
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	Content   []byte
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// Apply takes the first fix of every diagnostic and applies the ones that do
// not overlap an earlier edit in the same file.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(diagnostics)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	applied, skipped, changes := applyCandidates(fs, candidates)
	result.Applied = applied
	result.Skipped = append(result.Skipped, skipped...)
	result.FileChanges = changes
	if len(applied) == 0 {
		return result, ErrNoFixes
	}

	if opts.Write {
		for _, ch := range changes {
			if err := writeFile(ch.Path, ch.Content); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func gatherCandidates(diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0, len(diagnostics))
	var skips []SkippedFix
	for i, d := range diagnostics {
		if len(d.Fixes) == 0 {
			continue
		}
		f := d.Fixes[0]
		if len(f.Edits) == 0 {
			skips = append(skips, SkippedFix{Title: f.Title, Reason: "fix has no edits"})
			continue
		}
		cands = append(cands, candidate{diag: d, fix: f, order: i})
	}
	return cands, skips
}

func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].diag.Primary, candidates[j].diag.Primary
		if pi.File != pj.File {
			return pi.File < pj.File
		}
		if pi.Start != pj.Start {
			return pi.Start < pj.Start
		}
		return candidates[i].order < candidates[j].order
	})
}

func applyCandidates(fs *source.FileSet, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange) {
	accepted := make(map[source.FileID][]diag.FixEdit)
	applied := make([]AppliedFix, 0, len(selected))
	var skipped []SkippedFix

	for _, cand := range selected {
		var skipReason string
		for _, edit := range cand.fix.Edits {
			file := fs.Get(edit.Span.File)
			switch {
			case file == nil:
				skipReason = "edit targets an unknown file"
			case edit.Span.End < edit.Span.Start || int(edit.Span.End) > len(file.Content):
				skipReason = "edit span out of range"
			case conflictsWithExisting(accepted[edit.Span.File], edit):
				skipReason = "conflicts with previously applied edits"
			}
			if skipReason != "" {
				break
			}
		}
		if skipReason != "" {
			skipped = append(skipped, SkippedFix{Title: cand.fix.Title, Reason: skipReason})
			continue
		}
		for _, edit := range cand.fix.Edits {
			accepted[edit.Span.File] = append(accepted[edit.Span.File], edit)
		}
		applied = append(applied, AppliedFix{
			Title:       cand.fix.Title,
			Code:        cand.diag.Code,
			Message:     cand.diag.Message,
			PrimaryPath: formatFilePath(fs, cand.diag.Primary.File),
			EditCount:   len(cand.fix.Edits),
		})
	}

	changes := make([]FileChange, 0, len(accepted))
	for fileID, edits := range accepted {
		file := fs.Get(fileID)
		changes = append(changes, FileChange{
			Path:      file.Path,
			EditCount: len(edits),
			Content:   rewrite(file.Content, edits),
		})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return applied, skipped, changes
}

// rewrite применяет непересекающиеся правки с конца файла к началу,
// так что смещения ещё не применённых правок остаются верными.
func rewrite(content []byte, edits []diag.FixEdit) []byte {
	sorted := append([]diag.FixEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	out := append([]byte(nil), content...)
	for _, e := range sorted {
		suffix := append([]byte(nil), out[e.Span.End:]...)
		out = append(append(out[:e.Span.Start], e.NewText...), suffix...)
	}
	return out
}

func conflictsWithExisting(existing []diag.FixEdit, edit diag.FixEdit) bool {
	for _, prev := range existing {
		if spansConflict(prev, edit) {
			return true
		}
	}
	return false
}

// spansConflict reports whether two edits' spans overlap.
// Spans are half-open intervals [Start, End). Two insertions conflict only
// when they share a position.
func spansConflict(a, b diag.FixEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return aStart == bStart
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func writeFile(path string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	file := fs.Get(fileID)
	if file == nil {
		return ""
	}
	return file.Path
}
