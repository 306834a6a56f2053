package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Hedwyn/smelt/internal/proc"
)

// cxxExtensions lists the source suffixes compiled with the C++ driver.
var cxxExtensions = map[string]bool{
	".cc":  true,
	".cpp": true,
	".cxx": true,
}

// ZigCompiler builds CPython extension modules with zig as the C/C++
// toolchain, which gives cross-compilation for free.
type ZigCompiler struct {
	// Exe is the zig executable. Empty means "zig".
	Exe    string
	Runner proc.Runner
	Logger *slog.Logger
}

// NewZigCompiler returns a compiler using the zig binary from PATH.
func NewZigCompiler(runner proc.Runner, logger *slog.Logger) *ZigCompiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZigCompiler{Runner: runner, Logger: logger}
}

func (c *ZigCompiler) exe() string {
	if c.Exe == "" {
		return "zig"
	}
	return c.Exe
}

// CompileExtension compiles a single C or C++ source into a shared object
// importable by the interpreter described by py. The artifact lands in
// outDir, named after the source with the interpreter's extension suffix.
// Returns the artifact path.
func (c *ZigCompiler) CompileExtension(ctx context.Context, source, outDir string, py *PythonInfo) (string, error) {
	ext := filepath.Ext(source)
	name := strings.TrimSuffix(filepath.Base(source), ext)
	out := filepath.Join(outDir, name+py.ExtSuffix)

	driver := "cc"
	if cxxExtensions[ext] {
		driver = "c++"
	}
	args := []string{
		c.exe(), driver,
		"-shared", "-fPIC",
		"-I", py.IncludeDir,
		"-o", out,
		source,
	}
	c.Logger.Info("compiling extension", slog.String("source", source), slog.String("out", out))
	if _, err := c.Runner.Run(ctx, proc.Command{Args: args}); err != nil {
		return "", fmt.Errorf("failed to compile %s: %w", source, err)
	}
	return out, nil
}

// CompileZigModule compiles a zig source targeting the Python C API into a
// shared object named after the module.
func (c *ZigCompiler) CompileZigModule(ctx context.Context, name, folder string, py *PythonInfo) (string, error) {
	source := filepath.Join(folder, name+".zig")
	out := filepath.Join(folder, name+py.ExtSuffix)
	args := []string{
		c.exe(), "build-lib",
		"-dynamic", "-lc",
		"-I", py.IncludeDir,
		fmt.Sprintf("-femit-bin=%s", out),
		source,
	}
	c.Logger.Info("compiling zig module", slog.String("source", source), slog.String("out", out))
	if _, err := c.Runner.Run(ctx, proc.Command{Args: args}); err != nil {
		return "", fmt.Errorf("failed to compile zig module %s: %w", name, err)
	}
	return out, nil
}
