package provisioning

import (
	"fmt"
	"time"
)

// RunPhases executes all provisioning phases sequentially.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Event(Event{Type: EventPhaseStarted, Phase: "declare", Message: fmt.Sprintf("declaring stack with %d phases", len(phases))})

	for i, phase := range phases {
		phaseStart := time.Now()
		ctx.Observer.Progress(phase.Name(), i, len(phases))
		LogPhaseStart(ctx.Observer, phase.Name())

		if err := phase.Provision(ctx); err != nil {
			LogPhaseFailed(ctx.Observer, phase.Name(), err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		LogPhaseComplete(ctx.Observer, phase.Name(), time.Since(phaseStart))
	}

	LogPhaseComplete(ctx.Observer, "declare", time.Since(start))
	return nil
}
