package application

import (
	"context"

	"github.com/looplab/fsm"
)

const (
	eventCancel   = "cancel"
	eventComplete = "complete"
)

// meetingEvents is the whole meeting state machine: Scheduled is the only
// state with outgoing transitions.
var meetingEvents = fsm.Events{
	{Name: eventCancel, Src: []string{string(StatusScheduled)}, Dst: string(StatusCancelled)},
	{Name: eventComplete, Src: []string{string(StatusScheduled)}, Dst: string(StatusCompleted)},
}

// advanceStatus runs the event that leads to target from current and returns
// the resulting status. ok is false when the machine refuses the event.
func advanceStatus(ctx context.Context, current, target Status) (next Status, ok bool) {
	var event string
	switch target {
	case StatusCancelled:
		event = eventCancel
	case StatusCompleted:
		event = eventComplete
	default:
		return current, false
	}

	machine := fsm.NewFSM(string(current), meetingEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return current, false
	}
	return Status(machine.Current()), true
}
