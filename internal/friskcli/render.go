package friskcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"frisk/internal/core/frisk"
	"frisk/internal/model"
)

const (
	FormatDefault = "default"
	FormatVim     = "vim"
	FormatJSONL   = "jsonl"
)

var colorAttrs = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// Palette colors highlighted spans and file names. A nil color prints plain.
type Palette struct {
	Highlight *color.Color
	Filename  *color.Color
}

func NewPalette(enabled bool, highlight string, filename string) Palette {
	if !enabled {
		return Palette{}
	}
	mk := func(name string, fallback color.Attribute) *color.Color {
		attr, ok := colorAttrs[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			attr = fallback
		}
		c := color.New(attr, color.Bold)
		c.EnableColor()
		return c
	}
	return Palette{
		Highlight: mk(highlight, color.FgRed),
		Filename:  mk(filename, color.FgCyan),
	}
}

func paint(c *color.Color, s string) string {
	if c == nil || s == "" {
		return s
	}
	return c.Sprint(s)
}

func RenderEntry(e model.Entry, format string, pal Palette) string {
	switch format {
	case FormatJSONL:
		b, err := json.Marshal(e)
		if err != nil {
			return ""
		}
		return string(b) + "\n"
	case FormatVim:
		col := 1
		if len(e.Highlights) > 0 {
			col = e.Highlights[0].Offset + 1
		}
		return fmt.Sprintf("%s:%d:%d: %s\n", paint(pal.Filename, e.Filename), e.Line, col, highlightText(e, pal))
	default:
		return fmt.Sprintf("%s(%d): %s\n", paint(pal.Filename, e.Display), e.Line, highlightText(e, pal))
	}
}

// highlightText paints each highlighted span of the entry's line.
func highlightText(e model.Entry, pal Palette) string {
	if pal.Highlight == nil || len(e.Highlights) == 0 {
		return e.Text
	}
	var b strings.Builder
	pos := 0
	for _, h := range e.Highlights {
		start, end := h.Offset, h.Offset+h.Length
		if start < pos || end > len(e.Text) {
			continue
		}
		b.WriteString(e.Text[pos:start])
		b.WriteString(paint(pal.Highlight, e.Text[start:end]))
		pos = end
	}
	b.WriteString(e.Text[pos:])
	return b.String()
}

// Renderer prints entries as they arrive and the terminal status line.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	errw     io.Writer
	format   string
	pal      Palette
	progress bool
	entries  int
}

var _ frisk.Sink = (*Renderer)(nil)

func NewRenderer(out io.Writer, errw io.Writer, format string, pal Palette) *Renderer {
	if format == "" {
		format = FormatDefault
	}
	return &Renderer{out: out, errw: errw, format: format, pal: pal}
}

// ShowProgress also prints "Frisking: <path>" statuses to the error stream.
func (r *Renderer) ShowProgress(on bool) {
	r.mu.Lock()
	r.progress = on
	r.mu.Unlock()
}

func (r *Renderer) Notify(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range n.Entries {
		_, _ = io.WriteString(r.out, RenderEntry(e, r.format, r.pal))
		r.entries++
	}
	switch {
	case n.Final:
		if r.format != FormatJSONL {
			_, _ = fmt.Fprintln(r.errw, n.Status)
		}
	case r.progress && n.Running && n.Status != "":
		_, _ = fmt.Fprintln(r.errw, n.Status)
	}
}

func (r *Renderer) Entries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries
}
