package reconcile

// EventType classifies engine events.
type EventType string

const (
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventStepSkipped   EventType = "step.skipped"
	EventStepPlanned   EventType = "step.planned"
)

// Event is emitted for every step transition.
type Event struct {
	Type EventType
	Step Step
}

// Listener receives engine events. Calls are serialized by the engine.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Listeners fans events out to several listeners in order.
type Listeners []Listener

// OnEvent implements Listener.
func (ls Listeners) OnEvent(e Event) {
	for _, l := range ls {
		if l != nil {
			l.OnEvent(e)
		}
	}
}

type nopListener struct{}

func (nopListener) OnEvent(Event) {}
