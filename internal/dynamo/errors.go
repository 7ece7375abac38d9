package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrNoEntity indicates an entity that is not alive in the world.
	ErrNoEntity = errors.New("dynamo: entity not alive")

	// ErrNoBody indicates an entity without a physics body.
	ErrNoBody = errors.New("dynamo: entity has no physics body")

	// ErrZeroDuration indicates an interpolation configured with a non-positive duration.
	ErrZeroDuration = errors.New("dynamo: interpolation duration must be positive")

	// ErrKindMismatch indicates two joint configurations of different kinds.
	ErrKindMismatch = errors.New("dynamo: joint kinds differ")

	// ErrNoSlots indicates a slot deposit configured without any slot.
	ErrNoSlots = errors.New("dynamo: deposit has no slots")

	// ErrQueueDesync indicates the attempt queue and the slottable flags disagree.
	ErrQueueDesync = errors.New("dynamo: attempt queue out of sync with slottable state")

	// ErrUnknownScenario indicates a scenario name missing from the registry.
	ErrUnknownScenario = errors.New("dynamo: unknown scenario")

	// ErrInvalidState indicates a non-finite transform after a physics step.
	ErrInvalidState = errors.New("dynamo: non-finite body state")

	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")
)

// TickError wraps an error with the tick and stage it happened in.
type TickError struct {
	Tick    int
	Stage   string
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (%s): %v", e.Tick, e.Stage, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
