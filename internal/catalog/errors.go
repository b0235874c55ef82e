package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoLayout indicates a component has no two-level layout under an
	// averaging directory
	ErrNoLayout = errors.New("no local layout found")

	// ErrNoMatch indicates no component satisfies a lookup's constraints
	ErrNoMatch = errors.New("no components matching these constraints")
)

// AmbiguousError reports that a unique lookup matched several components.
type AmbiguousError struct {
	Variable   string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous request: more than one component containing variable %q satisfies these constraints: %s",
		e.Variable, strings.Join(e.Candidates, ", "))
}
