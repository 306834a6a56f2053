// Package output renders command results to the terminal.
//
// A Renderer wraps the command's stdout/stderr and picks an output mode:
// styled text when attached to a terminal, plain text when piped, or JSON
// on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

const (
	// ModeAuto picks text on a terminal and plain output otherwise.
	ModeAuto Mode = "auto"
	// ModeText forces human-readable text output.
	ModeText Mode = "text"
	// ModeJSON forces machine-readable JSON output.
	ModeJSON Mode = "json"
)

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Banner  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

func newStyles() *Styles {
	return &Styles{
		Banner:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
}

// noStyles returns pass-through styles for non-terminal output.
func noStyles() *Styles {
	return &Styles{}
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer writing to out and errOut. An empty mode
// defaults to ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Renderer{out: out, errOut: errOut, mode: mode}
	if r.EffectiveMode() == ModeText && isTerminal(out) && !termenv.EnvNoColor() {
		r.styles = newStyles()
	} else {
		r.styles = noStyles()
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves ModeAuto to a concrete mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode == ModeAuto {
		return ModeText
	}
	return r.mode
}

// Styles returns the active style set. Styles are no-ops when output is not
// a terminal.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Out returns the underlying stdout writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Println writes a line to stdout.
func (r *Renderer) Println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Success writes a confirmation line to stdout.
func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.out, r.styles.Success.Render(msg))
}

// Failure writes an error line to stderr.
func (r *Renderer) Failure(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Error.Render(msg))
}

// Warning writes a warning line to stderr.
func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.errOut, r.styles.Warning.Render(msg))
}

// JSON writes v as indented JSON to stdout.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
