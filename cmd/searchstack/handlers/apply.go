package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/ui/tui"
)

// Apply creates or updates the stack and prints the endpoints.
//
// The run is idempotent: applying an unchanged configuration makes no
// provider calls besides reads. A failed run leaves the state of every
// completed resource recorded, so the next apply resumes where it stopped.
func Apply(ctx context.Context, opts Options) error {
	return run(ctx, "apply", opts, func(ctx context.Context, s *session) error {
		s.logger.Info().Str("region", s.cfg.Region).Msg("applying stack")
		res, err := s.track(ctx, tui.NewApplyModel(s.cfg.Stack, s.cfg.Region), func(ctx context.Context, d Deployer) (*orchestration.Result, error) {
			return d.Deploy(ctx)
		})
		s.printer.Result(res)
		if err != nil {
			return fmt.Errorf("apply failed: %w", err)
		}
		return nil
	})
}

// Preview prints the changes apply would make without making them.
func Preview(ctx context.Context, opts Options) error {
	return run(ctx, "preview", opts, func(ctx context.Context, s *session) error {
		res, err := s.deployer(nil).Preview(ctx)
		s.printer.Result(res)
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		return nil
	})
}
