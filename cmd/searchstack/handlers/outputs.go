package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imamik/searchstack/internal/orchestration"
)

// Outputs prints the endpoints recorded by the last successful apply.
// With asJSON the endpoints are written as a JSON object keyed by output
// name, for use in scripts.
func Outputs(ctx context.Context, opts Options, asJSON bool) error {
	return run(ctx, "outputs", opts, func(ctx context.Context, s *session) error {
		ep, err := s.deployer(nil).Outputs(ctx)
		if err != nil {
			return err
		}
		if !asJSON {
			s.printer.Endpoints(ep)
			return nil
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{
			orchestration.OutputInternalEndpoint: ep.Internal,
			orchestration.OutputExternalEndpoint: ep.External,
		}); err != nil {
			return fmt.Errorf("failed to encode outputs: %w", err)
		}
		return nil
	})
}
