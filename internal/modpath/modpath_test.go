package modpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidImportPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "simple", path: "mod", want: true},
		{name: "dotted", path: "pkg.sub.mod", want: true},
		{name: "underscore", path: "_private.mod", want: true},
		{name: "digit suffix", path: "pkg.mod2", want: true},
		{name: "empty", path: "", want: false},
		{name: "leading digit", path: "pkg.2mod", want: false},
		{name: "empty segment", path: "pkg..mod", want: false},
		{name: "trailing dot", path: "pkg.", want: false},
		{name: "slash", path: "pkg/mod", want: false},
		{name: "hyphen", path: "my-pkg.mod", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidImportPath(tt.path))
		})
	}
}

func TestToFilePathRoundTrip(t *testing.T) {
	assert.Equal(t, filepath.Join("pkg", "sub", "mod")+".py", ToFilePath("pkg.sub.mod"))
	assert.Equal(t, "pkg.sub.mod", FromFilePath("pkg/sub/mod.py"))
	assert.Equal(t, "mod", FromFilePath("mod.py"))
}

func TestSolverResolvesSrcLayout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "minimal")
	require.NoError(t, os.MkdirAll(src, 0o755))
	file := filepath.Join(src, "hello.py")
	require.NoError(t, os.WriteFile(file, []byte("print('hi')\n"), 0o644))

	solver := &Solver{BaseDir: dir}
	got, err := solver.Resolve("minimal.hello")
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestSolverPrefersKnownRoots(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "vendored", "lib")
	require.NoError(t, os.MkdirAll(custom, 0o755))
	file := filepath.Join(custom, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))

	solver := &Solver{
		BaseDir: dir,
		Roots:   []PackageRoot{{Alias: "lib", Dir: filepath.Join("vendored", "lib")}},
	}
	got, err := solver.Resolve("lib.mod")
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestSolverReportsTriedLocations(t *testing.T) {
	solver := &Solver{BaseDir: t.TempDir()}
	_, err := solver.Resolve("ghost.mod")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost.mod", notFound.ImportPath)
	assert.Len(t, notFound.Tried, 2)
}

func TestSolverRejectsInvalidPath(t *testing.T) {
	solver := &Solver{}
	_, err := solver.Resolve("not/a/module")
	assert.Error(t, err)
}
