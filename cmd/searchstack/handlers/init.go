package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	runWizard        = wizard.RunWizard
	writeConfig      = wizard.WriteConfig
	fileExists       = wizard.FileExists
	confirmOverwrite = wizard.ConfirmOverwrite
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if outputPath == "" {
		outputPath = config.DefaultFile
	}
	if fileExists(outputPath) {
		ok, err := confirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			_, _ = fmt.Fprintln(stdout, "Aborted, existing configuration kept.")
			return nil
		}
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizard.BuildConfig(result)
	if err := writeConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stdout, "searchstack - search clusters on AWS")
	_, _ = fmt.Fprintln(stdout, "====================================")
	_, _ = fmt.Fprintln(stdout)
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	w := stdout
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Configuration saved!")
	_, _ = fmt.Fprintf(w, "  File:     %s\n", outputPath)
	_, _ = fmt.Fprintf(w, "  Stack:    %s/%s\n", cfg.Project, cfg.Stack)
	_, _ = fmt.Fprintf(w, "  Region:   %s\n", cfg.Region)
	_, _ = fmt.Fprintf(w, "  Hostname: %s\n", cfg.Hostname())
	_, _ = fmt.Fprintf(w, "  Image:    %s\n", cfg.Workload.Image)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Next steps:")
	_, _ = fmt.Fprintf(w, "  export %s=...\n", config.EnvAdminAPIKey)
	_, _ = fmt.Fprintf(w, "  export %s=...\n", config.EnvCloudflareAPIToken)
	_, _ = fmt.Fprintf(w, "  searchstack preview -c %s\n", outputPath)
	_, _ = fmt.Fprintf(w, "  searchstack apply -c %s\n", outputPath)
}
