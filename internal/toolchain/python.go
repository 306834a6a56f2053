// Package toolchain wraps the external compilers smelt drives: zig for C
// and zig sources, mypyc for typed Python modules, and nuitka for the final
// standalone binary.
package toolchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hedwyn/smelt/internal/proc"
)

// DefaultPython is the interpreter used for sysconfig queries and for
// running mypyc and nuitka.
const DefaultPython = "python3"

// PythonInfo carries the build-relevant facts about an interpreter.
type PythonInfo struct {
	// Exe is the interpreter executable.
	Exe string
	// IncludeDir is the directory holding Python.h.
	IncludeDir string
	// ExtSuffix is the platform extension suffix, e.g.
	// ".cpython-313-x86_64-linux-gnu.so".
	ExtSuffix string
}

const sysconfigQuery = `import sysconfig
print(sysconfig.get_paths()["include"])
print(sysconfig.get_config_var("EXT_SUFFIX"))`

// QueryPython asks the interpreter for its include directory and extension
// suffix.
func QueryPython(ctx context.Context, runner proc.Runner, exe string) (*PythonInfo, error) {
	if exe == "" {
		exe = DefaultPython
	}
	result, err := runner.Run(ctx, proc.Command{
		Args: []string{exe, "-c", sysconfigQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s sysconfig: %w", exe, err)
	}
	if len(result.Stdout) < 2 {
		return nil, fmt.Errorf("unexpected sysconfig output from %s: %q", exe, strings.Join(result.Stdout, "\n"))
	}
	return &PythonInfo{
		Exe:        exe,
		IncludeDir: strings.TrimSpace(result.Stdout[0]),
		ExtSuffix:  strings.TrimSpace(result.Stdout[1]),
	}, nil
}
