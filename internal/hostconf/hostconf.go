// Package hostconf prepares a CPython source tree for cross-compilation.
// It makes sure the requested interpreter sources are present locally,
// fetching them on a miss, then drives the interpreter's own configure
// script with the right cross-compilation triples.
//
// The package is deliberately a thin layer over the external tools: any
// failure aborts the run with the underlying tool's own exit status, and
// partial state is left on disk for inspection.
package hostconf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/trace"
)

// DefaultLibc is assumed when a request does not name a libc.
const DefaultLibc = "gnu"

// DefaultBaseURL is the canonical location of CPython source releases.
const DefaultBaseURL = "https://www.python.org/ftp/python"

// Request describes one host-configuration run. It is consumed once and
// carries no state beyond its three parameters.
type Request struct {
	// Arch is the CPU architecture the produced interpreter will run on.
	Arch string
	// VersionDir names the local directory expected to contain the
	// extracted interpreter sources, e.g. "Python-3.13.1".
	VersionDir string
	// Libc selects the C library flavor of the host triple. Empty means
	// DefaultLibc.
	Libc string
}

// HostTriple returns the triple identifying the machine the produced
// interpreter will run on.
func (r Request) HostTriple() string {
	libc := r.Libc
	if libc == "" {
		libc = DefaultLibc
	}
	return fmt.Sprintf("%s-linux-%s", r.Arch, libc)
}

// Prefix returns the build output location, scoped by version and
// architecture, relative to the working root.
func (r Request) Prefix() string {
	return path.Join("python", r.VersionDir, "build-"+r.Arch)
}

// BuildTriple returns the triple identifying the machine the compiler
// itself runs on.
func BuildTriple(machine string) string {
	return machine + "-linux-gnu"
}

// Machine returns the current machine's architecture in the uname -m
// convention used by compiler triples.
func Machine() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	case "arm":
		return "armv7l"
	default:
		return runtime.GOARCH
	}
}

// Configurator runs the whole check - fetch - configure sequence.
type Configurator struct {
	// Root is the working directory holding sources and build trees.
	Root string
	// ConfigSite is the site-configuration file handed to configure via
	// CONFIG_SITE. Empty means "config.site" under Root.
	ConfigSite string
	// BaseURL overrides the release download location. Empty means
	// DefaultBaseURL.
	BaseURL string

	Fetcher  SourceFetcher
	Runner   proc.Runner
	Recorder *trace.Recorder

	// MachineFunc reports the current machine architecture. Nil means
	// Machine.
	MachineFunc func() string

	logger *slog.Logger
}

// New returns a Configurator rooted at root, using the real fetcher.
func New(root string, runner proc.Runner, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configurator{
		Root:    root,
		Fetcher: &HTTPFetcher{Logger: logger},
		Runner:  runner,
		logger:  logger,
	}
}

// Configure ensures the requested source tree exists, then invokes the
// interpreter's configure script with cross-compilation triples. Errors from
// the fetch or the configure script propagate unchanged; in particular a
// *proc.ExitError carries the script's own exit code.
func (c *Configurator) Configure(ctx context.Context, req Request) error {
	if req.Arch == "" || req.VersionDir == "" {
		return fmt.Errorf("architecture and python version are required")
	}
	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}

	srcDir := filepath.Join(c.Root, req.VersionDir)
	if !dirExists(srcDir) {
		url := c.sourceURL(req.VersionDir)
		logger.Info("source tree missing, fetching", slog.String("dir", srcDir), slog.String("url", url))
		c.Recorder.AddTrace(trace.Note("fetching " + url))
		if err := c.Fetcher.Fetch(ctx, url, c.Root); err != nil {
			return err
		}
	} else {
		logger.Debug("source tree present, skipping fetch", slog.String("dir", srcDir))
	}

	machine := Machine
	if c.MachineFunc != nil {
		machine = c.MachineFunc
	}
	hostTriple := req.HostTriple()
	buildTriple := BuildTriple(machine())

	configSite := c.ConfigSite
	if configSite == "" {
		configSite = filepath.Join(c.Root, "config.site")
	}
	if abs, err := filepath.Abs(configSite); err == nil {
		configSite = abs
	}

	prefix := filepath.Join(c.Root, filepath.FromSlash(req.Prefix()))
	if abs, err := filepath.Abs(prefix); err == nil {
		prefix = abs
	}

	logger.Info("configuring interpreter",
		slog.String("host", hostTriple),
		slog.String("build", buildTriple),
		slog.String("prefix", prefix),
	)

	result, err := c.Runner.Run(ctx, proc.Command{
		Args: []string{
			"./configure",
			"--host=" + hostTriple,
			"--build=" + buildTriple,
			"--prefix=" + prefix,
			"--disable-ipv6",
			"--with-build-python",
		},
		Dir: srcDir,
		Env: []string{"CONFIG_SITE=" + configSite},
	})
	if result != nil {
		c.Recorder.AddTrace(&trace.CommandTrace{Step: "configure", Result: result})
	}
	return err
}

// sourceURL derives the canonical tarball location for a version directory.
// "Python-3.13.1" fetches release 3.13.1; anything else is used verbatim.
func (c *Configurator) sourceURL(versionDir string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	release := strings.TrimPrefix(versionDir, "Python-")
	return fmt.Sprintf("%s/%s/%s.tgz", base, release, versionDir)
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
