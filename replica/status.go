package replica

import (
	"fmt"
)

// Status is the lifecycle phase of a replica. Only Normal admits requests;
// the rest belong to the view-change, recovery and reconfiguration layers.
type Status uint64

const (
	Normal Status = iota
	ViewChange
	Recovering
	Transitioning
)

func (s Status) String() string {
	switch s {
	case Normal:
		return "normal"
	case ViewChange:
		return "view-change"
	case Recovering:
		return "recovering"
	case Transitioning:
		return "transitioning"
	}
	return fmt.Sprintf("status(%d)", uint64(s))
}

func (s Status) valid() bool {
	return s <= Transitioning
}

func ParseStatus(str string) (Status, error) {
	for s := Normal; s <= Transitioning; s++ {
		if s.String() == str {
			return s, nil
		}
	}
	return Normal, fmt.Errorf("unknown status %q, expected one of: normal, view-change, recovering, transitioning", str)
}

// validTransitions maps the current status to the statuses reachable from it.
var validTransitions = map[Status]map[Status]bool{
	Normal:        {ViewChange: true, Recovering: true, Transitioning: true},
	ViewChange:    {Normal: true, Recovering: true},
	Recovering:    {Normal: true},
	Transitioning: {Normal: true, ViewChange: true},
}

func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

type TransitionError struct {
	From Status
	To   Status
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("status transition %s -> %s not allowed", err.From, err.To)
}
