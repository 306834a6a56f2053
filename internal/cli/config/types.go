// Package config loads and validates the smelt project configuration.
//
// The configuration normally lives in the project's pyproject.toml under
// the [tool.smelt] table; a standalone smelt.yaml is accepted as an
// alternative. Environment variables (SMELT_ prefix) and command-line flags
// override file values.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Hedwyn/smelt/internal/modpath"
)

// ModuleDecl declares a Python module compiled by an external tool (mypyc,
// cython). Source is optional; when empty the module is located through the
// package roots.
type ModuleDecl struct {
	ImportPath string `koanf:"import_path"`
	Source     string `koanf:"source"`
}

// NativeExtension declares a C/C++ extension built from explicit sources.
type NativeExtension struct {
	ImportPath string   `koanf:"import_path"`
	Sources    []string `koanf:"sources"`
}

// ZigModule declares an extension written in zig against the Python C API.
type ZigModule struct {
	Name       string `koanf:"name"`
	Folder     string `koanf:"folder"`
	ImportPath string `koanf:"import_path"`
}

// Config defines how the smelt backend should run.
type Config struct {
	// PackagesLocation maps top-level package aliases to the directories
	// holding their sources.
	PackagesLocation map[string]string `koanf:"packages_location"`
	CExtensions      []NativeExtension `koanf:"c_extensions"`
	ZigModules       []ZigModule       `koanf:"zig_modules"`
	MypycModules     []ModuleDecl      `koanf:"mypyc_modules"`
	CythonModules    []ModuleDecl      `koanf:"cython_modules"`
	// Entrypoint is the import path packaged into the standalone binary.
	Entrypoint string `koanf:"entrypoint"`
	// Python is the interpreter used for tool invocations.
	Python string `koanf:"python"`
	Debug  bool   `koanf:"debug"`

	// ProjectDir is the directory the config was loaded from. Set by the
	// loader, not by the file.
	ProjectDir string `koanf:"-"`
}

// Solver returns a module locator honoring the configured package roots.
func (c *Config) Solver() *modpath.Solver {
	aliases := make([]string, 0, len(c.PackagesLocation))
	for alias := range c.PackagesLocation {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	roots := make([]modpath.PackageRoot, 0, len(aliases))
	for _, alias := range aliases {
		roots = append(roots, modpath.PackageRoot{Alias: alias, Dir: c.PackagesLocation[alias]})
	}
	return &modpath.Solver{BaseDir: c.ProjectDir, Roots: roots}
}

// Render returns a human-friendly multi-line view of the config, used by
// show-config.
func (c *Config) Render() string {
	var lines []string
	add := func(name string, value any) {
		lines = append(lines, fmt.Sprintf("%-20s: %v", name, value))
	}
	add("entrypoint", c.Entrypoint)
	add("python", c.Python)
	add("debug", c.Debug)
	aliases := make([]string, 0, len(c.PackagesLocation))
	for alias := range c.PackagesLocation {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		add("packages_location", alias+" -> "+c.PackagesLocation[alias])
	}
	for _, ext := range c.CExtensions {
		add("c_extension", fmt.Sprintf("%s (%s)", ext.ImportPath, strings.Join(ext.Sources, ", ")))
	}
	for _, mod := range c.ZigModules {
		add("zig_module", fmt.Sprintf("%s @ %s", mod.Name, mod.Folder))
	}
	for _, mod := range c.MypycModules {
		add("mypyc_module", mod.ImportPath)
	}
	for _, mod := range c.CythonModules {
		add("cython_module", mod.ImportPath)
	}
	return strings.Join(lines, "\n")
}
