package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/ui/tui"
)

// Destroy deletes every resource recorded for the stack, dependents first.
func Destroy(ctx context.Context, opts Options) error {
	return run(ctx, "destroy", opts, func(ctx context.Context, s *session) error {
		s.logger.Info().Msg("destroying stack")
		res, err := s.track(ctx, tui.NewDestroyModel(s.cfg.Stack, s.cfg.Region), func(ctx context.Context, d Deployer) (*orchestration.Result, error) {
			return d.Destroy(ctx)
		})
		if res != nil {
			s.printer.Summary(res.Summary)
		}
		if err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}
		s.logger.Info().Msg("stack destroyed")
		return nil
	})
}
