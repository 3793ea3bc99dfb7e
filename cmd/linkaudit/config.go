package main

import (
	"fmt"
	"path/filepath"

	"github.com/nao1215/linkaudit/internal/config"
)

// projectRoots resolves the project root arguments to absolute paths.
// The current directory is used when no argument is given. Absolute
// paths keep history entries stable regardless of the working directory.
func projectRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	roots := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid project root %q: %w", arg, err)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// applyConfigFile loads the project file for cfg and overlays it.
// If the user explicitly specified a config file path, it is an error
// when the file does not exist. Otherwise the defaults are kept silently.
func applyConfigFile(cfg *config.Config) error {
	projectRoot := ""
	if len(cfg.Roots) > 0 {
		projectRoot = cfg.Roots[0]
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath, projectRoot)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ApplyFile(file)
	return nil
}
