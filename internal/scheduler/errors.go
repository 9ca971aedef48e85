package scheduler

import (
	"errors"
	"fmt"
)

// ErrDeadlock is matched by every *SchedulingDeadlockError.
var ErrDeadlock = errors.New("scheduling deadlock")

// SchedulingDeadlockError is returned when no group can be selected while
// groups are still pending.
type SchedulingDeadlockError struct {
	Current int
	Pending []int
}

func (e *SchedulingDeadlockError) Error() string {
	return fmt.Sprintf("scheduling deadlock at group %d: %d groups pending %v", e.Current, len(e.Pending), e.Pending)
}

func (e *SchedulingDeadlockError) Is(target error) bool {
	return target == ErrDeadlock
}
