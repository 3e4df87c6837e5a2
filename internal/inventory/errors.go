package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Specific errors returned by the Gateway. Each matches ErrNotFound or
// ErrConflict with errors.Is and reads well as an API message.
var (
	ErrPCNotFound         = fmt.Errorf("pc %w", ErrNotFound)
	ErrTagNotFound        = fmt.Errorf("tag %w", ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("tag assignment %w", ErrNotFound)
	ErrTagExists          = fmt.Errorf("tag name %w", ErrConflict)
	ErrTagAssigned        = fmt.Errorf("tag assignment %w", ErrConflict)
)
