package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hedwyn/smelt/internal/cli/config"
	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/state"
	"github.com/Hedwyn/smelt/internal/testutil"
	"github.com/Hedwyn/smelt/internal/trace"
)

const extSuffix = ".cpython-313-x86_64-linux-gnu.so"

// fakeRunner emulates the external toolchain: it answers the sysconfig
// query and creates the artifacts each compiler invocation would produce.
type fakeRunner struct {
	t        *testing.T
	commands [][]string
	failOn   string
}

func (r *fakeRunner) Run(_ context.Context, cmd proc.Command) (*proc.Result, error) {
	r.commands = append(r.commands, cmd.Args)
	line := strings.Join(cmd.Args, " ")

	if r.failOn != "" && strings.Contains(line, r.failOn) {
		result := &proc.Result{Args: cmd.Args, ExitCode: 1}
		return result, &proc.ExitError{Cmd: result.Command(), Code: 1}
	}

	result := &proc.Result{Args: cmd.Args}
	switch {
	case strings.Contains(line, "sysconfig"):
		result.Stdout = []string{"/usr/include/python3.13", extSuffix}
	case strings.Contains(line, " cc ") || strings.Contains(line, " c++ "):
		r.touch(argAfter(cmd.Args, "-o"))
	case strings.Contains(line, "build-lib"):
		for _, arg := range cmd.Args {
			if strings.HasPrefix(arg, "-femit-bin=") {
				r.touch(strings.TrimPrefix(arg, "-femit-bin="))
			}
		}
	case strings.Contains(line, "-m nuitka"):
		path := cmd.Args[len(cmd.Args)-1]
		for _, arg := range cmd.Args {
			if strings.HasSuffix(arg, ".py") {
				path = arg
			}
		}
		r.touch(strings.TrimSuffix(filepath.Base(path), ".py") + ".bin")
	case strings.Contains(line, "-m mypyc"):
		base := strings.TrimSuffix(cmd.Args[len(cmd.Args)-1], ".py")
		r.touch(filepath.Join(cmd.Dir, base+extSuffix))
		r.touch(filepath.Join(cmd.Dir, base+"__mypyc.so"))
	}
	return result, nil
}

func (r *fakeRunner) touch(path string) {
	r.t.Helper()
	require.NoError(r.t, os.WriteFile(path, nil, 0o644))
}

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// newProject lays out a minimal project with an entrypoint, a C source and
// a typed module under src/demo.
func newProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	pkg := filepath.Join(dir, "src", "demo")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	for _, name := range []string{"cli.py", "fib.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(pkg, name), []byte("pass\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "hello.c"), []byte("/* stub */\n"), 0o644))

	return &config.Config{
		Entrypoint: "demo.cli",
		Python:     "python3",
		ProjectDir: dir,
		CExtensions: []config.NativeExtension{
			{ImportPath: "demo.hello", Sources: []string{filepath.Join("src", "demo", "hello.c")}},
		},
		MypycModules: []config.ModuleDecl{{ImportPath: "demo.fib"}},
	}
}

func TestBuildFullPipeline(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := newProject(t)
	runner := &fakeRunner{t: t}
	recorder := trace.NewRecorder()

	b := New(cfg, runner, recorder, nil, testutil.NewTestLogger(t))
	result, err := b.Build(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "cli.bin", result.Binary)
	require.Len(t, result.Extensions, 2)
	assert.FileExists(t, result.Extensions[0])
	assert.FileExists(t, result.Extensions[1])

	// mypyc runtime must be forced into the binary.
	require.Equal(t, []string{"fib__mypyc"}, result.MypycRuntimes)
	var nuitkaArgs []string
	for _, args := range runner.commands {
		if strings.Contains(strings.Join(args, " "), "-m nuitka") {
			nuitkaArgs = args
		}
	}
	require.NotNil(t, nuitkaArgs)
	assert.Contains(t, nuitkaArgs, "--include-module=fib__mypyc")
	assert.Contains(t, nuitkaArgs, "--onefile")

	// Every step landed in the recorder.
	assert.NotEmpty(t, recorder.Commands())
}

func TestBuildWithoutEntrypoint(t *testing.T) {
	cfg := newProject(t)
	runner := &fakeRunner{t: t}

	b := New(cfg, runner, nil, nil, testutil.NewTestLogger(t))
	result, err := b.Build(context.Background(), Options{WithoutEntrypoint: true})
	require.NoError(t, err)

	assert.Empty(t, result.Binary)
	for _, args := range runner.commands {
		assert.NotContains(t, strings.Join(args, " "), "nuitka")
	}
}

func TestBuildZigModules(t *testing.T) {
	cfg := newProject(t)
	cfg.CExtensions = nil
	cfg.MypycModules = nil
	cfg.ZigModules = []config.ZigModule{{Name: "speedup", Folder: "native"}}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ProjectDir, "native"), 0o755))

	t.Chdir(t.TempDir())
	runner := &fakeRunner{t: t}
	b := New(cfg, runner, nil, nil, testutil.NewTestLogger(t))
	result, err := b.Build(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Extensions, 1)
	assert.Equal(t, filepath.Join(cfg.ProjectDir, "native", "speedup"+extSuffix), result.Extensions[0])
}

func TestBuildRejectsMultiSourceExtension(t *testing.T) {
	cfg := newProject(t)
	cfg.CExtensions = []config.NativeExtension{
		{ImportPath: "demo.hello", Sources: []string{filepath.Join("src", "demo", "hello.c")}},
		{ImportPath: "demo.multi", Sources: []string{"a.c", "b.c"}},
	}

	runner := &fakeRunner{t: t}
	b := New(cfg, runner, nil, nil, testutil.NewTestLogger(t))
	_, err := b.Build(context.Background(), Options{WithoutEntrypoint: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multi-source")

	// The invalid declaration stops the whole stage: not even the valid
	// sibling extension gets compiled.
	for _, args := range runner.commands {
		assert.NotContains(t, strings.Join(args, " "), " cc ")
	}
}

func TestBuildSkipsCythonModules(t *testing.T) {
	cfg := newProject(t)
	cfg.CExtensions = nil
	cfg.MypycModules = nil
	cfg.CythonModules = []config.ModuleDecl{{ImportPath: "demo.fast"}}
	recorder := trace.NewRecorder()

	b := New(cfg, &fakeRunner{t: t}, recorder, nil, testutil.NewTestLogger(t))
	_, err := b.Build(context.Background(), Options{WithoutEntrypoint: true})
	require.NoError(t, err)
	assert.Contains(t, recorder.Render(), "demo.fast")
}

func TestBuildFailureStopsPipeline(t *testing.T) {
	cfg := newProject(t)
	runner := &fakeRunner{t: t, failOn: " cc "}

	b := New(cfg, runner, nil, nil, testutil.NewTestLogger(t))
	_, err := b.Build(context.Background(), Options{})

	require.Error(t, err)
	var exitErr *proc.ExitError
	assert.ErrorAs(t, err, &exitErr)
	for _, args := range runner.commands {
		assert.NotContains(t, strings.Join(args, " "), "nuitka")
	}
}

func TestBuildRecordsRunInStore(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := newProject(t)
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	defer store.Close()

	b := New(cfg, &fakeRunner{t: t}, nil, store, testutil.NewTestLogger(t))
	_, err := b.Build(context.Background(), Options{})
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "demo.cli", runs[0].Entrypoint)

	steps, err := store.StepsForRun(runs[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, steps)
}

func TestBuildRecordsFailedRun(t *testing.T) {
	cfg := newProject(t)
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	defer store.Close()

	b := New(cfg, &fakeRunner{t: t, failOn: "mypyc"}, nil, store, testutil.NewTestLogger(t))
	_, err := b.Build(context.Background(), Options{})
	require.Error(t, err)

	runs, err := store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}
