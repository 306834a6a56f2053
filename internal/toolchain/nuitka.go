package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Hedwyn/smelt/internal/proc"
)

// NuitkaOptions tunes the standalone compilation of an entrypoint.
type NuitkaOptions struct {
	// NoFollowImports disables recursive compilation of imported modules.
	NoFollowImports bool
	// IncludeModules forces modules into the binary that nuitka cannot see
	// through imports, typically mypyc runtime extensions.
	IncludeModules []string
	// IncludePackages forces whole packages into the binary.
	IncludePackages []string
	// OnLine receives nuitka's output as it streams.
	OnLine func(stream proc.Stream, line string)
}

// CompileWithNuitka compiles the module at path into a single-file
// executable and returns the path of the produced binary.
//
// Nuitka runs as a subprocess (python -m nuitka): it is not built for
// library use, so the CLI is the stable surface.
func CompileWithNuitka(ctx context.Context, runner proc.Runner, python, path string, opts NuitkaOptions) (string, error) {
	if python == "" {
		python = DefaultPython
	}
	args := []string{python, "-m", "nuitka"}
	if !opts.NoFollowImports {
		args = append(args, "--follow-imports")
	}
	args = append(args, "--onefile", path)
	for _, mod := range opts.IncludeModules {
		args = append(args, "--include-module="+mod)
	}
	for _, pkg := range opts.IncludePackages {
		args = append(args, "--include-package="+pkg)
	}

	if _, err := runner.Run(ctx, proc.Command{Args: args, OnLine: opts.OnLine}); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("nuitka requires a python interpreter on PATH: %w", err)
		}
		return "", err
	}

	binPath := strings.TrimSuffix(filepath.Base(path), ".py") + binarySuffix()
	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("nuitka reported success but %s is missing: %w", binPath, err)
	}
	return binPath, nil
}

func binarySuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ".bin"
}

// NuitkaifyModule compiles a single Python module into an importable
// extension instead of a standalone program. Returns the extension path.
func NuitkaifyModule(ctx context.Context, runner proc.Runner, python, path string, onLine func(proc.Stream, string)) (string, error) {
	if python == "" {
		python = DefaultPython
	}
	args := []string{python, "-m", "nuitka", "--module", path}
	if _, err := runner.Run(ctx, proc.Command{Args: args, OnLine: onLine}); err != nil {
		return "", err
	}

	// Module mode names the artifact with the interpreter's ABI tag, so
	// match on the base name and the platform suffix.
	base := strings.TrimSuffix(filepath.Base(path), ".py")
	matches, _ := filepath.Glob(base + "*" + moduleSuffix())
	if len(matches) == 0 {
		return "", fmt.Errorf("nuitka reported success but no %s extension was produced", base)
	}
	return matches[0], nil
}

func moduleSuffix() string {
	if runtime.GOOS == "windows" {
		return ".pyd"
	}
	return ".so"
}
