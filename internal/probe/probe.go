package probe

import (
	"context"

	"github.com/upwatch/dispatch/internal/domain"
)

// Outcome is the classified result of a single probe attempt.
//
// Status is only ever Up or Down here: an unreachable target is normal,
// recordable data, not an error. Unknown is reserved for websites with no
// probe history and never comes from a probe.
type Outcome struct {
	Status         domain.TickStatus
	ResponseTimeMS int    // wall-clock, measured by the prober
	StatusCode     int    // HTTP status; 0 on transport failure
	Label          string // human-readable cause, e.g. "HTTP 200", "Connection Refused"
}

// Checker performs a single probe against a stored (scheme-less) URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}
