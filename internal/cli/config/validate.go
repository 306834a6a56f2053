package config

import (
	"github.com/Hedwyn/smelt/internal/modpath"
)

// Validate checks the declared modules and the entrypoint.
func (c *Config) Validate() error {
	if c.Entrypoint == "" {
		return configError("defining an entrypoint for smelt is mandatory")
	}
	if !modpath.IsValidImportPath(c.Entrypoint) {
		return configError("entrypoint %q is not a valid import path", c.Entrypoint)
	}
	for _, ext := range c.CExtensions {
		if err := checkImportPath(ext.ImportPath); err != nil {
			return err
		}
		if len(ext.Sources) == 0 {
			return configError("c_extension %s declares no sources", ext.ImportPath)
		}
	}
	for _, mod := range c.ZigModules {
		if mod.Name == "" {
			return configError("zig_module with empty name")
		}
		if mod.ImportPath != "" {
			if err := checkImportPath(mod.ImportPath); err != nil {
				return err
			}
		}
	}
	for _, mod := range c.MypycModules {
		if err := checkImportPath(mod.ImportPath); err != nil {
			return err
		}
	}
	for _, mod := range c.CythonModules {
		if err := checkImportPath(mod.ImportPath); err != nil {
			return err
		}
	}
	return nil
}

func checkImportPath(p string) error {
	if !modpath.IsValidImportPath(p) {
		return configError(
			"%q contains invalid characters for Python modules, it cannot represent a valid import path", p)
	}
	return nil
}
