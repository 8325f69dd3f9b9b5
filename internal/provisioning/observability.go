package provisioning

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the minimal printf-style logger phases use for free-form output.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "network", "compute")
	Message   string            // Human-readable message
	Resource  string            // Resource name/ID if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
	Err       error
}

// EventType represents the type of provisioning event.
type EventType string

const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	EventResourcePlanned  EventType = "resource.planned"
	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceExists   EventType = "resource.exists"
	EventResourceUpdating EventType = "resource.updating"
	EventResourceUpdated  EventType = "resource.updated"
	EventResourceFailed   EventType = "resource.failed"
	EventResourceSkipped  EventType = "resource.skipped"
	EventResourceDeleting EventType = "resource.deleting"
	EventResourceDeleted  EventType = "resource.deleted"

	// EventStageReached indicates the stack reached a new deployment stage.
	EventStageReached EventType = "stage.reached"

	EventValidationWarning EventType = "validation.warning"
	EventValidationError   EventType = "validation.error"

	EventProgress EventType = "progress"
)

// Log levels accepted by LogConfig.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
	JSON  bool
	// Output defaults to stderr.
	Output io.Writer
}

// NewLogger builds a zerolog logger writing JSON or human-readable lines.
func NewLogger(cfg LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	// Stage and step events are logged from different goroutines.
	out = zerolog.SyncWriter(out)
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// LogObserver implements Observer on top of zerolog.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer writing to logger.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// NewConsoleObserver creates an observer with human-readable output on stderr.
func NewConsoleObserver() *LogObserver {
	return NewLogObserver(NewLogger(LogConfig{}))
}

// Logger returns the underlying logger.
func (o *LogObserver) Logger() zerolog.Logger {
	return o.logger
}

// Printf implements Logger.
func (o *LogObserver) Printf(format string, v ...any) {
	o.logger.Info().Msgf(format, v...)
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	var e *zerolog.Event
	switch event.Type {
	case EventPhaseFailed, EventResourceFailed, EventValidationError:
		e = o.logger.Error()
	case EventResourceSkipped, EventValidationWarning:
		e = o.logger.Warn()
	case EventProgress, EventResourcePlanned:
		e = o.logger.Debug()
	default:
		e = o.logger.Info()
	}

	e = e.Str("event", string(event.Type))
	if !event.Timestamp.IsZero() {
		e = e.Time("at", event.Timestamp)
	}
	if event.Phase != "" {
		e = e.Str("phase", event.Phase)
	}
	if event.Resource != "" {
		e = e.Str("resource", event.Resource)
	}
	for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
		e = e.Str(k, event.Fields[k])
	}
	if event.Err != nil {
		e = e.Err(event.Err)
	}
	e.Msg(event.Message)
}

// Progress implements Observer.
func (o *LogObserver) Progress(phase string, current, total int) {
	e := o.logger.Info().Str("event", string(EventProgress)).Str("phase", phase).
		Int("current", current).Int("total", total)
	if total > 0 {
		e = e.Int("percent", (current*100)/total)
	}
	e.Msg("progress")
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	ctx := o.logger.With()
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		ctx = ctx.Str(k, fields[k])
	}
	return &LogObserver{logger: ctx.Logger()}
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: "failed",
		Err:     err,
	})
}

// LogResourceCreating logs a resource creation start event.
func LogResourceCreating(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceCreating,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("creating %s", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogResourceCreated logs a successful resource creation event.
func LogResourceCreated(observer Observer, phase, resourceType, resourceName, resourceID string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s created", resourceType),
		Fields:   map[string]string{"type": resourceType, "id": resourceID},
	})
}

// LogResourceExists logs when a resource already exists and is unchanged.
func LogResourceExists(observer Observer, phase, resourceType, resourceName, resourceID string) {
	observer.Event(Event{
		Type:     EventResourceExists,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s already exists", resourceType),
		Fields:   map[string]string{"type": resourceType, "id": resourceID},
	})
}

// LogResourceDeleting logs a resource deletion start event.
func LogResourceDeleting(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceDeleting,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("deleting %s", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogResourceDeleted logs a successful resource deletion event.
func LogResourceDeleted(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceDeleted,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s deleted", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogStageReached logs a deployment stage transition.
func LogStageReached(observer Observer, stack, stage string) {
	observer.Event(Event{
		Type:    EventStageReached,
		Phase:   "orchestrator",
		Message: fmt.Sprintf("stage %s reached", stage),
		Fields:  map[string]string{"stack": stack, "stage": stage},
	})
}
