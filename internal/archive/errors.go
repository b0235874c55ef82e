package archive

import (
	"errors"
	"fmt"
)

// ErrNoCommand indicates a command name was left empty in the configuration.
var ErrNoCommand = errors.New("no command configured")

// Error wraps a failure to run an archive command with the operation and
// the affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "dmls", "dmget")
	Path string // Affected path, empty for queue queries
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// Operation names for consistent logging and error reporting
const (
	OpMigrate   = "migrate"   // Submitting a tape retrieval
	OpResidency = "residency" // Listing on-disk residency
	OpQueue     = "queue"     // Listing outstanding retrievals
	OpCopy      = "copy"      // Bulk copy to scratch
)
