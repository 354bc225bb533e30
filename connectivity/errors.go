// CLAUDE:SUMMARY Package connectivity keeps planner calls to remote providers from hammering a failing upstream: circuit breakers and bounded retries.
package connectivity

import "fmt"

// ErrCircuitOpen is returned when the breaker for an upstream is open and
// the call was not attempted.
type ErrCircuitOpen struct {
	Upstream string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("connectivity: circuit open: %s", e.Upstream)
}
