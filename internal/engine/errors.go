package engine

import (
	"fmt"

	"github.com/dgallion1/insurtree/internal/engine/internal/forest"
)

// ValidationError reports a query parameter below its minimum of 1.
type ValidationError struct {
	Field string
	Value int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be at least 1, got %d", e.Field, e.Value)
}

// ConstructionError reports a snapshot that cannot form a forest. Kind is one of the
// Err* sentinels below and is matched by errors.Is.
type ConstructionError = forest.ConstructionError

var (
	ErrDuplicateID    = forest.ErrDuplicateID
	ErrCycle          = forest.ErrCycle
	ErrDanglingParent = forest.ErrDanglingParent
)
