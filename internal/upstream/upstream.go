// Package upstream carries the error type shared by the outbound gateway
// clients, so callers can tell a reachable-but-failing service apart from a
// transport failure and map the two to different responses.
package upstream

import "fmt"

// Error reports a non-success response from an external service. The upstream
// body is retained for diagnostics; it is logged, never returned verbatim to
// API callers.
type Error struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Service, e.Body)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// IsAuthFailure reports whether the upstream rejected the supplied credential.
func (e *Error) IsAuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
