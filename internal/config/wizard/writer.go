package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/imamik/searchstack/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig writes the config to a YAML file with a descriptive header.
// Secrets are stripped.
func WriteConfig(cfg *config.Config, outputPath string) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(outputPath))
	sb.WriteString("\n")
	sb.Write(data)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func generateHeader(outputPath string) string {
	return fmt.Sprintf(`# searchstack configuration
# Generated by: searchstack init
# Generated at: %s
#
# Required environment variables:
#   %s - workload admin key (literal or awssm://<secret-id>)
#   %s - Cloudflare token with DNS edit permission
#
# Usage:
#   searchstack preview -c %s
#   searchstack apply -c %s
`, time.Now().Format(time.RFC3339), config.EnvAdminAPIKey, config.EnvCloudflareAPIToken, outputPath, outputPath)
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite asks whether an existing file may be replaced.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
