package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/upwatch/dispatch/internal/domain"
)

// classifyStatusCode: any response in [200,500) is a reachable-server signal
// (2xx/3xx/4xx all count as Up); 5xx and everything else is Down.
func classifyStatusCode(code int) domain.TickStatus {
	if code >= 200 && code < 500 {
		return domain.StatusUp
	}
	return domain.StatusDown
}

func statusLabel(code int) string {
	if code >= 500 {
		return fmt.Sprintf("Server Error %d", code)
	}
	return fmt.Sprintf("HTTP %d", code)
}

// classifyError labels a transport-level failure for logging. The persisted
// status for every branch is Down; the label only distinguishes the cause.
func classifyError(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return "DNS Resolution Failed"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection Refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "Connection Reset"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	return "Network Error"
}
