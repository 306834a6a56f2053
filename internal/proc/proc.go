// Package proc runs external build tools as subprocesses, streaming their
// output line by line and keeping a structured record of each execution.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Stream identifies which pipe a captured line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// InterruptExitCode is the conventional exit code (0x80 + SIGINT) reported
// when a command is cut short by its timeout.
const InterruptExitCode = 130

// DefaultGraceDelay is how long an interrupted process is given to terminate
// before it is killed.
const DefaultGraceDelay = time.Second

// Command describes a single external command invocation.
type Command struct {
	// Args is the argv of the command; Args[0] is the executable.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
	// Timeout bounds the execution. Zero means no limit.
	Timeout time.Duration
	// GraceDelay is the time between interrupt and kill on timeout.
	// Zero means DefaultGraceDelay.
	GraceDelay time.Duration
	// OnLine, when set, receives every captured line as it arrives.
	OnLine func(stream Stream, line string)
}

// Result records the outcome of a command execution.
type Result struct {
	Args      []string
	Dir       string
	ExitCode  int
	Stdout    []string
	Stderr    []string
	StartedAt time.Time
	Duration  time.Duration
}

// Success reports whether the command exited with code 0.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// Command returns the invocation in single-line form.
func (r *Result) Command() string { return strings.Join(r.Args, " ") }

// Render returns a log-friendly report block for this execution.
func (r *Result) Render() string {
	status := "OK"
	if r.ExitCode != 0 {
		status = "[FAILED]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] > %s %s [%.2f s]", r.Dir, r.Command(), status, r.Duration.Seconds())
	if len(r.Stdout) > 0 {
		b.WriteString("\nStdout\n------\n")
		b.WriteString(strings.Join(r.Stdout, "\n"))
	}
	if len(r.Stderr) > 0 {
		b.WriteString("\nStderr\n------\n")
		b.WriteString(strings.Join(r.Stderr, "\n"))
	}
	return b.String()
}

// ExitError carries the exit code of a failed command so callers can
// propagate it unchanged as the process exit status.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Cmd, e.Code)
}

// Runner executes commands. The interface exists so pipelines can be tested
// without spawning real processes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner is the real Runner backed by os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewExecRunner returns a Runner logging through the given logger.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Logger: logger}
}

// Run executes the command, streaming stdout and stderr as lines arrive.
// On timeout the child receives an interrupt and, after the grace delay, a
// kill; the result then reports InterruptExitCode. A non-zero exit returns
// the result together with an *ExitError.
func (r *ExecRunner) Run(ctx context.Context, command Command) (*Result, error) {
	if len(command.Args) == 0 {
		return nil, errors.New("empty command")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if command.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command.Args[0], command.Args[1:]...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	// Interrupt first so the child can clean up; the kill happens on its
	// own once WaitDelay expires.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	grace := command.GraceDelay
	if grace <= 0 {
		grace = DefaultGraceDelay
	}
	cmd.WaitDelay = grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.Logger.Debug("running command", slog.String("cmd", strings.Join(command.Args, " ")), slog.String("dir", command.Dir))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", command.Args[0], err)
	}

	var wg sync.WaitGroup
	var stdoutLines, stderrLines []string
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdoutLines = drainLines(stdout, StreamStdout, command.OnLine)
	}()
	go func() {
		defer wg.Done()
		stderrLines = drainLines(stderr, StreamStderr, command.OnLine)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	result := &Result{
		Args:      command.Args,
		Dir:       command.Dir,
		Stdout:    stdoutLines,
		Stderr:    stderrLines,
		StartedAt: start,
		Duration:  time.Since(start),
	}

	switch {
	case waitErr == nil:
		return result, nil
	case runCtx.Err() != nil && ctx.Err() == nil:
		// Our own timeout fired, not the caller's context.
		result.ExitCode = InterruptExitCode
		return result, &ExitError{Cmd: result.Command(), Code: result.ExitCode}
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Cmd: result.Command(), Code: result.ExitCode}
		}
		return result, waitErr
	}
}

func drainLines(pipe io.Reader, stream Stream, onLine func(Stream, string)) []string {
	var lines []string
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if onLine != nil {
			onLine(stream, line)
		}
	}
	return lines
}
