package bus

import (
	"fmt"
	"strings"
)

// TimeoutError is returned when a bus call exceeds its deadline.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "bus: call timed out" }

// RemoteError carries the error name and body of a failed reply from a
// remote peer. Local handlers may also return one to pick the error name
// reported to a remote caller.
type RemoteError struct {
	Name string
	Body []any
}

func (e *RemoteError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("bus: remote error %s", e.Name)
	}
	parts := make([]string, len(e.Body))
	for i, v := range e.Body {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("bus: remote error %s: %s", e.Name, strings.Join(parts, ", "))
}
