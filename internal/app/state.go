package app

import "fmt"

// runState is the per-run lifecycle. Transitions are one-way; the error
// state absorbs only programming faults, never soft probe or audit
// failures.
type runState int

const (
	stateIdle runState = iota
	stateStarting
	stateLayer1
	stateLayer2
	stateLayer3
	stateLayer4
	stateComplete
	stateError
)

var stateNames = map[runState]string{
	stateIdle:     "idle",
	stateStarting: "starting",
	stateLayer1:   "layer1",
	stateLayer2:   "layer2",
	stateLayer3:   "layer3",
	stateLayer4:   "layer4",
	stateComplete: "complete",
	stateError:    "error",
}

func (s runState) String() string { return stateNames[s] }

// advance enforces forward-only transitions.
func (s *runState) advance(next runState) error {
	if next == stateError {
		*s = stateError
		return nil
	}
	if next != *s+1 {
		return fmt.Errorf("illegal state transition %s -> %s", *s, next)
	}
	*s = next
	return nil
}
