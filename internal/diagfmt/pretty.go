package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bootcode/internal/diag"
	"bootcode/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, code, gutter, caret, note, fix *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		note:   color.New(color.FgCyan),
		fix:    color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.gutter, p.caret, p.note, p.fix} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем строку исходника с подчёркиванием ^~~~ по Span, затем notes и fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		file := fs.Get(d.Primary.File)
		if file == nil {
			fmt.Fprintf(w, "%s %s: %s\n", pal.severity(d.Severity).Sprint(d.Severity), pal.code.Sprint(d.Code.ID()), d.Message)
			continue
		}
		start, end := fs.Resolve(d.Primary)
		path := formatPath(file.Path, opts.PathMode)
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col,
			pal.severity(d.Severity).Sprint(d.Severity), pal.code.Sprint(d.Code.ID()), d.Message)
		writeSnippet(w, file, start, end, pal)

		if opts.ShowNotes {
			for _, n := range d.Notes {
				writeNote(w, fs, n, opts.PathMode, pal)
			}
		}
		if opts.ShowFixes {
			for i, f := range d.Fixes {
				writeFix(w, fs, i+1, f, opts.ShowPreview, pal)
			}
		}
	}
}

func writeSnippet(w io.Writer, file *source.File, start, end source.LineCol, pal palette) {
	line := file.GetLine(start.Line)
	gutter := fmt.Sprintf("%4d | ", start.Line)
	blank := strings.Repeat(" ", len(gutter)-2) + "| "
	fmt.Fprintf(w, "%s%s\n", pal.gutter.Sprint(gutter), expandTabs(line))

	col := min(int(start.Col)-1, len(line))
	prefix := runewidth.StringWidth(expandTabs(line[:col]))
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		stop := min(int(end.Col)-1, len(line))
		width = max(1, runewidth.StringWidth(expandTabs(line[col:stop])))
	} else if end.Line > start.Line {
		width = max(1, runewidth.StringWidth(expandTabs(line[col:])))
	}
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s%s%s\n", pal.gutter.Sprint(blank), strings.Repeat(" ", prefix), pal.caret.Sprint(marker))
}

func writeNote(w io.Writer, fs *source.FileSet, n diag.Note, mode PathMode, pal palette) {
	if file := fs.Get(n.Span.File); file != nil {
		start, _ := fs.Resolve(n.Span)
		fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"), formatPath(file.Path, mode), start.Line, start.Col, n.Msg)
		return
	}
	fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), n.Msg)
}

func writeFix(w io.Writer, fs *source.FileSet, idx int, f diag.Fix, preview bool, pal palette) {
	fmt.Fprintf(w, "  %s %s\n", pal.fix.Sprintf("fix #%d:", idx), f.Title)
	for _, e := range f.Edits {
		// fs.Position отдаёт <no-span> для вставок, а у них тоже есть позиция
		pos := "<no-span>"
		if file := fs.Get(e.Span.File); file != nil {
			start, _ := fs.Resolve(e.Span)
			pos = fmt.Sprintf("%s:%d:%d", file.Path, start.Line, start.Col)
		}
		fmt.Fprintf(w, "    edit %s apply=%q\n", pos, e.NewText)
		if !preview {
			continue
		}
		pv, err := buildFixEditPreview(fs, e)
		if err != nil {
			fmt.Fprintf(w, "    preview unavailable: %v\n", err)
			continue
		}
		fmt.Fprintln(w, "    preview:")
		for _, l := range pv.before {
			fmt.Fprintf(w, "      - %s\n", l)
		}
		for _, l := range pv.after {
			fmt.Fprintf(w, "      + %s\n", l)
		}
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
