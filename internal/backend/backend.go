// Package backend orchestrates a smelt build: native extensions first, then
// the standalone binary of the entrypoint.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Hedwyn/smelt/internal/cli/config"
	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/state"
	"github.com/Hedwyn/smelt/internal/toolchain"
	"github.com/Hedwyn/smelt/internal/trace"
)

// Options tunes a single build.
type Options struct {
	// WithoutEntrypoint builds the declared extensions but skips the final
	// standalone binary. This is what build hooks want: the packaging tool
	// owns the entrypoint.
	WithoutEntrypoint bool
	// OnLine receives subprocess output as it streams.
	OnLine func(stream proc.Stream, line string)
}

// Result lists what a build produced.
type Result struct {
	// Binary is the standalone executable, empty when the entrypoint was
	// skipped.
	Binary string
	// Extensions are the compiled extension modules, in build order.
	Extensions []string
	// MypycRuntimes are the import names of the mypyc shared runtimes that
	// were threaded into the binary.
	MypycRuntimes []string
}

// Backend runs the build pipeline described by a project config.
type Backend struct {
	cfg      *config.Config
	runner   proc.Runner
	recorder *trace.Recorder
	store    state.Store
	logger   *slog.Logger

	// python caches the interpreter facts for the whole build.
	python *toolchain.PythonInfo
}

// New creates a backend for the given config. Recorder and store may be nil;
// recording is then skipped.
func New(cfg *config.Config, runner proc.Runner, recorder *trace.Recorder, store state.Store, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		store:    store,
		logger:   logger,
	}
}

// Build runs the full pipeline: zig modules, C extensions, mypyc modules,
// then the nuitka standalone binary of the entrypoint.
func (b *Backend) Build(ctx context.Context, opts Options) (*Result, error) {
	runID, finish := b.startRun(opts)
	result, err := b.build(ctx, runID, opts)
	finish(err)
	return result, err
}

func (b *Backend) build(ctx context.Context, runID string, opts Options) (*Result, error) {
	py, err := b.pythonInfo(ctx, runID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	solver := b.cfg.Solver()
	zig := toolchain.NewZigCompiler(b.stepRunner(runID, "zig"), b.logger)

	for _, mod := range b.cfg.ZigModules {
		folder := filepath.Join(b.cfg.ProjectDir, mod.Folder)
		artifact, err := zig.CompileZigModule(ctx, mod.Name, folder, py)
		if err != nil {
			return nil, err
		}
		result.Extensions = append(result.Extensions, artifact)
	}

	artifacts, err := b.compileCExtensions(ctx, runID, py)
	if err != nil {
		return nil, err
	}
	result.Extensions = append(result.Extensions, artifacts...)

	var includeModules []string
	for _, mod := range b.cfg.MypycModules {
		source := mod.Source
		if source == "" {
			source, err = solver.Resolve(mod.ImportPath)
			if err != nil {
				return nil, err
			}
		}
		ext, err := toolchain.MypycifyModule(ctx, b.stepRunner(runID, "mypyc"), b.cfg.Python, mod.ImportPath, source, py)
		if err != nil {
			return nil, err
		}
		result.Extensions = append(result.Extensions, ext.ModulePath)
		if ext.RuntimeName != "" {
			includeModules = append(includeModules, ext.RuntimeName)
			result.MypycRuntimes = append(result.MypycRuntimes, ext.RuntimeName)
		}
	}

	for _, mod := range b.cfg.CythonModules {
		b.logger.Warn("cython modules are not supported yet, skipping", slog.String("module", mod.ImportPath))
		b.recorder.AddTrace(trace.Note("skipped cython module " + mod.ImportPath + " (unsupported)"))
	}

	if opts.WithoutEntrypoint {
		return result, nil
	}

	entrypoint, err := solver.Resolve(b.cfg.Entrypoint)
	if err != nil {
		return nil, err
	}
	binary, err := toolchain.CompileWithNuitka(ctx, b.stepRunner(runID, "nuitka"), b.cfg.Python, entrypoint, toolchain.NuitkaOptions{
		IncludeModules: includeModules,
		OnLine:         opts.OnLine,
	})
	if err != nil {
		return nil, err
	}
	result.Binary = binary
	return result, nil
}

// compileCExtensions builds all declared C extensions concurrently. Each
// artifact lands next to its source.
func (b *Backend) compileCExtensions(ctx context.Context, runID string, py *toolchain.PythonInfo) ([]string, error) {
	if len(b.cfg.CExtensions) == 0 {
		return nil, nil
	}

	// Validated up front: no compile goroutine runs for an invalid set.
	for _, ext := range b.cfg.CExtensions {
		if len(ext.Sources) != 1 {
			return nil, fmt.Errorf("c_extension %s: multi-source extensions are not supported (got %d sources)",
				ext.ImportPath, len(ext.Sources))
		}
	}

	zig := toolchain.NewZigCompiler(b.stepRunner(runID, "zig cc"), b.logger)
	artifacts := make([]string, len(b.cfg.CExtensions))
	g, gctx := errgroup.WithContext(ctx)
	for i, ext := range b.cfg.CExtensions {
		source := filepath.Join(b.cfg.ProjectDir, ext.Sources[0])
		g.Go(func() error {
			artifact, err := zig.CompileExtension(gctx, source, filepath.Dir(source), py)
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (b *Backend) pythonInfo(ctx context.Context, runID string) (*toolchain.PythonInfo, error) {
	if b.python != nil {
		return b.python, nil
	}
	py, err := toolchain.QueryPython(ctx, b.stepRunner(runID, "sysconfig"), b.cfg.Python)
	if err != nil {
		return nil, err
	}
	b.python = py
	return py, nil
}

// startRun opens a run in the state store. The returned finish closes it
// with the build outcome. A nil store yields no-ops.
func (b *Backend) startRun(opts Options) (string, func(error)) {
	if b.store == nil {
		return "", func(error) {}
	}
	command := "build"
	if opts.WithoutEntrypoint {
		command = "build --without-entrypoint"
	}
	run, err := b.store.CreateRun(command, b.cfg.Entrypoint)
	if err != nil {
		b.logger.Warn("failed to record run", slog.Any("error", err))
		return "", func(error) {}
	}
	return run.ID, func(buildErr error) {
		status, msg := state.RunStatusCompleted, ""
		if buildErr != nil {
			status, msg = state.RunStatusFailed, buildErr.Error()
		}
		if err := b.store.CompleteRun(run.ID, status, msg); err != nil {
			b.logger.Warn("failed to complete run", slog.Any("error", err))
		}
	}
}

// stepRunner wraps the backend's runner so every command it executes is
// recorded as a trace and a state store step.
func (b *Backend) stepRunner(runID, name string) proc.Runner {
	return &recordingRunner{
		inner:    b.runner,
		recorder: b.recorder,
		store:    b.store,
		logger:   b.logger,
		runID:    runID,
		name:     name,
	}
}
