package provisioning

import (
	"strings"

	"github.com/imamik/searchstack/internal/reconcile"
)

const applyPhase = "apply"

// StepLogger reports engine steps as resource events on observer.
func StepLogger(observer Observer) reconcile.Listener {
	return reconcile.ListenerFunc(func(e reconcile.Event) {
		st := e.Step
		kind := string(st.Kind)
		switch e.Type {
		case reconcile.EventStepStarted:
			switch st.Op {
			case reconcile.OpCreate:
				LogResourceCreating(observer, applyPhase, kind, st.Name)
			case reconcile.OpUpdate, reconcile.OpReplace:
				observer.Event(Event{
					Type: EventResourceUpdating, Phase: applyPhase, Resource: st.Name,
					Message: string(st.Op) + " " + kind,
					Fields:  changedFields(kind, st.ChangedKeys),
				})
			case reconcile.OpDelete:
				LogResourceDeleting(observer, applyPhase, kind, st.Name)
			}
		case reconcile.EventStepCompleted:
			switch st.Op {
			case reconcile.OpSame:
				LogResourceExists(observer, applyPhase, kind, st.Name, st.ID)
			case reconcile.OpCreate:
				LogResourceCreated(observer, applyPhase, kind, st.Name, st.ID)
			case reconcile.OpUpdate, reconcile.OpReplace:
				observer.Event(Event{
					Type: EventResourceUpdated, Phase: applyPhase, Resource: st.Name,
					Message: kind + " " + string(st.Op) + "d",
					Fields:  map[string]string{"type": kind, "id": st.ID},
				})
			case reconcile.OpDelete:
				LogResourceDeleted(observer, applyPhase, kind, st.Name)
			}
		case reconcile.EventStepPlanned:
			observer.Event(Event{
				Type: EventResourcePlanned, Phase: "preview", Resource: st.Name,
				Message: "would " + string(st.Op) + " " + kind,
				Fields:  changedFields(kind, st.ChangedKeys),
			})
		case reconcile.EventStepFailed:
			observer.Event(Event{
				Type: EventResourceFailed, Phase: applyPhase, Resource: st.Name,
				Message: string(st.Op) + " failed",
				Fields:  map[string]string{"type": kind},
				Err:     st.Err,
			})
		case reconcile.EventStepSkipped:
			observer.Event(Event{
				Type: EventResourceSkipped, Phase: applyPhase, Resource: st.Name,
				Message: "skipped",
				Fields:  map[string]string{"type": kind},
				Err:     st.Err,
			})
		}
	})
}

func changedFields(kind string, keys []string) map[string]string {
	f := map[string]string{"type": kind}
	if len(keys) > 0 {
		f["changed"] = strings.Join(keys, ",")
	}
	return f
}
