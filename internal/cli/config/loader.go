package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// PyprojectFile is the standard project manifest carrying the [tool.smelt]
// table.
const PyprojectFile = "pyproject.toml"

// StandaloneFile is the alternative, smelt-only config file.
const StandaloneFile = "smelt.yaml"

// envPrefix is stripped from environment overrides: SMELT_DEBUG -> debug.
const envPrefix = "SMELT_"

// smeltTable is the pyproject table holding the smelt config.
const smeltTable = "tool.smelt"

// ErrNotConfigured reports that the targeted project carries no smelt
// configuration at all.
var ErrNotConfigured = errors.New("no smelt config found")

// Error marks an invalid smelt configuration.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func configError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Load reads the project configuration from dir.
// Precedence (highest to lowest): flags > SMELT_* env vars > config file >
// defaults. Returns ErrNotConfigured when neither a [tool.smelt] table nor
// a smelt.yaml exists.
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"python": "python3",
		"debug":  false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: pyproject.toml [tool.smelt], else smelt.yaml.
	if err := loadFile(k, dir); err != nil {
		return nil, err
	}

	// 3. Environment variables (SMELT_ prefix).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only when explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, configError("smelt config is invalid: %v", err)
	}
	cfg.ProjectDir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, dir string) error {
	pyproject := filepath.Join(dir, PyprojectFile)
	if _, err := os.Stat(pyproject); err == nil {
		raw := koanf.New(".")
		if err := raw.Load(file.Provider(pyproject), toml.Parser()); err != nil {
			return fmt.Errorf("error reading %s: %w", pyproject, err)
		}
		if !raw.Exists(smeltTable) {
			return fmt.Errorf("%w: %s has no [%s] table", ErrNotConfigured, pyproject, smeltTable)
		}
		return k.Merge(raw.Cut(smeltTable))
	}

	standalone := filepath.Join(dir, StandaloneFile)
	if _, err := os.Stat(standalone); err == nil {
		if err := k.Load(file.Provider(standalone), yaml.Parser()); err != nil {
			return fmt.Errorf("error reading %s: %w", standalone, err)
		}
		return nil
	}

	return fmt.Errorf("%w: neither %s nor %s exists in %s", ErrNotConfigured, PyprojectFile, StandaloneFile, dir)
}
