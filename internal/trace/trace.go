// Package trace collects contextual information about a build as it runs
// and renders it into a report. Recording is opt-in: a nil Recorder is a
// valid no-op, so library code can trace unconditionally.
package trace

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Hedwyn/smelt/internal/proc"
)

// Context is anything that can render itself into a report section.
type Context interface {
	Render() string
}

// Note is a free-form comment inside a trace.
type Note string

func (n Note) Render() string { return string(n) }

// TaskTrace describes one part of the business logic being executed, as an
// ordered sequence of notes and sub-contexts.
type TaskTrace struct {
	Name     string
	elements []Context
}

// Comment appends a free-form note to the task.
func (t *TaskTrace) Comment(format string, args ...any) {
	t.elements = append(t.elements, Note(fmt.Sprintf(format, args...)))
}

// Add appends a sub-context to the task.
func (t *TaskTrace) Add(ctx Context) {
	t.elements = append(t.elements, ctx)
}

func (t *TaskTrace) Render() string {
	parts := make([]string, 0, len(t.elements)+1)
	if t.Name != "" {
		parts = append(parts, t.Name)
	}
	for _, el := range t.elements {
		parts = append(parts, el.Render())
	}
	return strings.Join(parts, "\n")
}

// CommandTrace records the outcome of one external command step.
type CommandTrace struct {
	Step   string
	Result *proc.Result
}

func (c *CommandTrace) Render() string {
	return c.Result.Render()
}

// Recorder accumulates persistent contexts (stored under a name) and an
// ordered list of traces for one run.
type Recorder struct {
	names      []string
	persistent map[string]Context
	traces     []Context
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{persistent: make(map[string]Context)}
}

// AddTrace stores a trace. Traces render in order of addition.
func (r *Recorder) AddTrace(ctx Context) {
	if r == nil {
		return
	}
	r.traces = append(r.traces, ctx)
}

// SetContext stores a persistent context under the given name, replacing any
// previous one.
func (r *Recorder) SetContext(name string, ctx Context) {
	if r == nil {
		return
	}
	if _, ok := r.persistent[name]; !ok {
		r.names = append(r.names, name)
	}
	r.persistent[name] = ctx
}

// GetContext retrieves the persistent context stored under the given name.
// Returns nil if no such context exists.
func (r *Recorder) GetContext(name string) Context {
	if r == nil {
		return nil
	}
	return r.persistent[name]
}

// Commands returns every recorded command trace, in order.
func (r *Recorder) Commands() []*CommandTrace {
	if r == nil {
		return nil
	}
	var out []*CommandTrace
	for _, t := range r.traces {
		if cmd, ok := t.(*CommandTrace); ok {
			out = append(out, cmd)
		}
	}
	return out
}

// Render produces the full report: persistent contexts first, then traces.
func (r *Recorder) Render() string {
	if r == nil {
		return ""
	}
	var lines []string
	if len(r.names) > 0 {
		lines = append(lines, "General context\n------------")
		for _, name := range r.names {
			lines = append(lines, name, strings.Repeat("-", len(name)), r.persistent[name].Render())
		}
	}
	if len(r.traces) > 0 {
		lines = append(lines, "Trace\n-------------")
		for _, t := range r.traces {
			lines = append(lines, "> "+t.Render())
		}
	}
	return strings.Join(lines, "\n")
}

// Summary renders the recorded command steps as a table.
func (r *Recorder) Summary() string {
	commands := r.Commands()
	if len(commands) == 0 {
		return ""
	}
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Step", "Command", "Exit", "Duration"})
	for _, cmd := range commands {
		w.AppendRow(table.Row{
			cmd.Step,
			cmd.Result.Command(),
			cmd.Result.ExitCode,
			fmt.Sprintf("%.2fs", cmd.Result.Duration.Seconds()),
		})
	}
	return w.Render()
}
