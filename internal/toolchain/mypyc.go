package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Hedwyn/smelt/internal/proc"
)

// MypycExtension describes the artifacts of one mypyc compilation: the
// module extension itself and, when produced, the shared mypyc runtime that
// must ship alongside it.
type MypycExtension struct {
	ImportPath string
	// ModulePath is the compiled extension shared object.
	ModulePath string
	// RuntimeName is the import name of the shared runtime extension
	// (empty when none was produced). The runtime is invisible to import
	// scanners and has to be declared explicitly to nuitka.
	RuntimeName string
	// RuntimePath is the runtime's shared object, if any.
	RuntimePath string
}

// MypycifyModule compiles the typed Python module at source with mypyc,
// placing artifacts next to the source. The runtime extension, when emitted,
// follows the <module>__mypyc naming convention.
func MypycifyModule(ctx context.Context, runner proc.Runner, python, importPath, source string, py *PythonInfo) (*MypycExtension, error) {
	if python == "" {
		python = DefaultPython
	}
	dir := filepath.Dir(source)
	base := strings.TrimSuffix(filepath.Base(source), ".py")

	_, err := runner.Run(ctx, proc.Command{
		Args: []string{python, "-m", "mypyc", filepath.Base(source)},
		Dir:  dir,
	})
	if err != nil {
		return nil, fmt.Errorf("mypyc failed for %s: %w", importPath, err)
	}

	ext := &MypycExtension{
		ImportPath: importPath,
		ModulePath: filepath.Join(dir, base+py.ExtSuffix),
	}

	runtimeName := base + "__mypyc"
	matches, _ := filepath.Glob(filepath.Join(dir, runtimeName+"*"+sharedLibSuffix(py)))
	if len(matches) > 0 {
		ext.RuntimeName = runtimeName
		ext.RuntimePath = matches[0]
	}
	return ext, nil
}

func sharedLibSuffix(py *PythonInfo) string {
	// EXT_SUFFIX ends in .so (or .pyd); the runtime uses the same suffix
	// but may carry a different ABI tag, so match on the final extension.
	return filepath.Ext(py.ExtSuffix)
}
