package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"bootcode/internal/diag"
	"bootcode/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

func buildFixEditPreview(fs *source.FileSet, edit diag.FixEdit) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, fmt.Errorf("nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}

	startPos, endPos := fs.Resolve(edit.Span)
	startLine := startPos.Line
	endLine := max(endPos.Line, startLine)

	blockStart, err := lineStartOffset(file, startLine)
	if err != nil {
		return fixEditPreview{}, err
	}
	blockEnd, err := lineEndOffset(file, endLine)
	if err != nil {
		return fixEditPreview{}, err
	}
	blockEnd = max(blockEnd, blockStart)

	original := file.Content[blockStart:blockEnd]
	relStart := int(edit.Span.Start) - int(blockStart)
	relEnd := int(edit.Span.End) - int(blockStart)
	if relStart < 0 || relStart > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span start %d out of range for preview block", relStart)
	}
	if relEnd < relStart || relEnd > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span end %d out of range for preview block", relEnd)
	}

	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, original[:relStart]...)
	after = append(after, edit.NewText...)
	after = append(after, original[relEnd:]...)

	return fixEditPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

// splitPreviewLines режет блок на строки без завершающего перевода строки.
func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func lineStartOffset(f *source.File, line uint32) (uint32, error) {
	if line <= 1 {
		return 0, nil
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1, nil
	}
	return contentLen(f)
}

// lineEndOffset возвращает смещение конца строки, не включая '\n'.
func lineEndOffset(f *source.File, line uint32) (uint32, error) {
	if line == 0 {
		return 0, nil
	}
	idx := line - 1
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx], nil
	}
	return contentLen(f)
}

func contentLen(f *source.File) (uint32, error) {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return 0, fmt.Errorf("len file content overflow: %w", err)
	}
	return n, nil
}
