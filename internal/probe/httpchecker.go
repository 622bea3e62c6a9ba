package probe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/upwatch/dispatch/internal/domain"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; UpTime-Monitor/1.0)"
	maxRedirects = 3
)

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPChecker{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// via includes the initial request, so the budget allows
				// maxRedirects followed hops before giving up
				if len(via) > maxRedirects {
					// stop following and classify the last response
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// NormalizeURL prepends https:// to scheme-less stored URLs.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func (h *HTTPChecker) Check(ctx context.Context, target string) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeURL(target), nil)
	if err != nil {
		return Outcome{
			Status:         domain.StatusDown,
			ResponseTimeMS: int(time.Since(start).Milliseconds()),
			Label:          "Invalid URL",
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil {
		return Outcome{
			Status:         domain.StatusDown,
			ResponseTimeMS: elapsed,
			Label:          classifyError(err),
		}
	}
	defer resp.Body.Close()

	return Outcome{
		Status:         classifyStatusCode(resp.StatusCode),
		ResponseTimeMS: elapsed,
		StatusCode:     resp.StatusCode,
		Label:          statusLabel(resp.StatusCode),
	}
}
