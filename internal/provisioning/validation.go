package provisioning

import (
	"errors"
	"fmt"

	"github.com/imamik/searchstack/internal/config"
)

// ValidationPhase implements the Phase interface for pre-flight validation.
// It declares nothing; errors abort before any node is declared.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	if ctx.Config == nil {
		return errors.New("configuration is required")
	}

	var all config.ValidationErrors
	if err := ctx.Config.Validate(); err != nil && !errors.As(err, &all) {
		return err
	}

	for _, w := range all.Warnings() {
		ctx.Observer.Event(Event{
			Type:    EventValidationWarning,
			Phase:   vp.Name(),
			Message: w.Message,
			Fields:  map[string]string{"field": w.Field},
		})
	}

	errs := all.Errors()
	for _, e := range errs {
		ctx.Observer.Event(Event{
			Type:    EventValidationError,
			Phase:   vp.Name(),
			Message: e.Message,
			Fields:  map[string]string{"field": e.Field},
		})
	}
	if len(errs) > 0 {
		return errs
	}

	if _, err := ctx.Config.Subnets(); err != nil {
		return fmt.Errorf("failed to calculate subnets: %w", err)
	}
	return nil
}
