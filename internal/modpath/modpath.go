// Package modpath handles conversions between Python import paths and
// filesystem locations, plus validation of user-supplied import paths.
package modpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrNotFound is returned by Solver.Resolve when no candidate file exists.
type NotFoundError struct {
	ImportPath string
	Tried      []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no source file found for module %q (tried %s)",
		e.ImportPath, strings.Join(e.Tried, ", "))
}

// IsValidImportPath reports whether s is a dotted chain of valid Python
// identifiers, i.e. something that can appear in an import statement.
func IsValidImportPath(s string) bool {
	if s == "" {
		return false
	}
	for _, segment := range strings.Split(s, ".") {
		if !isIdentifier(segment) {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// ToFilePath converts a dotted import path to a relative source file path,
// e.g. "pkg.mod" -> "pkg/mod.py".
func ToFilePath(importPath string) string {
	return filepath.Join(strings.Split(importPath, ".")...) + ".py"
}

// FromFilePath converts a source file path back to a dotted import path,
// e.g. "pkg/mod.py" -> "pkg.mod".
func FromFilePath(p string) string {
	p = strings.TrimSuffix(filepath.ToSlash(p), ".py")
	p = strings.Trim(p, "/")
	return strings.ReplaceAll(p, "/", ".")
}

// PackageRoot maps a package alias to the directory holding its sources.
type PackageRoot struct {
	Alias string
	Dir   string
}

// Solver locates module sources on disk. Known roots come from the project's
// packages_location table; the src/ and flat layouts are tried as fallbacks.
type Solver struct {
	BaseDir string
	Roots   []PackageRoot
}

// Resolve returns the source file for the given import path.
func (s *Solver) Resolve(importPath string) (string, error) {
	if !IsValidImportPath(importPath) {
		return "", fmt.Errorf("%q is not a valid Python import path", importPath)
	}
	rel := ToFilePath(importPath)
	head := strings.SplitN(importPath, ".", 2)[0]

	var tried []string
	for _, candidate := range s.candidates(rel, head) {
		tried = append(tried, candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &NotFoundError{ImportPath: importPath, Tried: tried}
}

func (s *Solver) candidates(rel, head string) []string {
	base := s.BaseDir
	if base == "" {
		base = "."
	}
	var out []string
	for _, root := range s.Roots {
		if root.Alias != head {
			continue
		}
		dir := root.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		// The root aliases the top-level package, so the leading segment
		// is already part of the root directory.
		trimmed := strings.TrimPrefix(rel, head+string(filepath.Separator))
		out = append(out, filepath.Join(dir, trimmed))
	}
	out = append(out,
		filepath.Join(base, "src", rel),
		filepath.Join(base, rel),
	)
	return out
}
