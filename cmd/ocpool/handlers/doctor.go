package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/util/prerequisites"
)

// checkTools is replaced in tests.
var checkTools = prerequisites.Check

// Doctor handles the doctor command.
//
// It validates the configuration file and checks that the external tools it
// needs are installed.
func Doctor(ctx context.Context, g Global) error {
	path := config.ResolvePath(g.ConfigPath)
	fmt.Fprintln(stdout, titleStyle.Render("Configuration"))

	cfg, err := config.LoadWithoutValidation(path)
	if err != nil {
		printFailure(stdout, "%s: %v", path, err)
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	verr := cfg.Validate()
	if verr != nil {
		printFailure(stdout, "%s: %v", path, verr)
	} else {
		printSuccess(stdout, "%s", path)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, titleStyle.Render("Tools"))
	results := checkTools(ctx, prerequisites.ForConfig(cfg))
	for _, r := range results.Results {
		switch {
		case r.Found:
			version := r.Version
			if version == "" {
				version = "unknown version"
			}
			printSuccess(stdout, "%s %s", r.Tool.Name, dimStyle.Render(version))
		case r.Tool.Required:
			printFailure(stdout, "%s not found: %s", r.Tool.Name, r.Tool.Description)
		default:
			printWarning(stdout, "%s not found (optional): %s", r.Tool.Name, r.Tool.Description)
		}
	}

	return errors.Join(verr, results.Error())
}
