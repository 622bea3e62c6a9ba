package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/upwatch/dispatch/internal/domain"
)

func TestHTTPChecker_StatusClassification(t *testing.T) {
	cases := []struct {
		code int
		want domain.TickStatus
	}{
		{200, domain.StatusUp},
		{301, domain.StatusUp},
		{404, domain.StatusUp}, // reachable server, even if the page is gone
		{500, domain.StatusDown},
		{503, domain.StatusDown},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("status_%d", c.code), func(t *testing.T) {
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.code)
			}))
			defer s.Close()

			chk := NewHTTPChecker(2 * time.Second)
			out := chk.Check(context.Background(), s.URL)
			if out.Status != c.want {
				t.Fatalf("status %d: want %s, got %+v", c.code, c.want, out)
			}
			if out.StatusCode != c.code {
				t.Fatalf("want status code %d, got %d", c.code, out.StatusCode)
			}
			if out.ResponseTimeMS < 0 {
				t.Fatalf("response time should be >= 0, got %d", out.ResponseTimeMS)
			}
		})
	}
}

func TestHTTPChecker_SendsUserAgent(t *testing.T) {
	var gotUA string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	chk.Check(context.Background(), s.URL)
	if gotUA != userAgent {
		t.Fatalf("want UA %q, got %q", userAgent, gotUA)
	}
}

func TestHTTPChecker_RedirectCap(t *testing.T) {
	// redirects to itself forever; the cap must stop following and classify
	// the last 3xx as Up instead of erroring out
	var s *httptest.Server
	s = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.URL, http.StatusFound)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Status != domain.StatusUp || out.StatusCode != http.StatusFound {
		t.Fatalf("redirect loop should classify as Up via last 3xx, got %+v", out)
	}
}

func TestHTTPChecker_FollowsThreeRedirects(t *testing.T) {
	// a chain of exactly 3 redirects ending in a 500 must be followed all
	// the way down and classified by the final response
	mux := http.NewServeMux()
	mux.HandleFunc("/0", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/1", http.StatusFound) })
	mux.HandleFunc("/1", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/2", http.StatusFound) })
	mux.HandleFunc("/2", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/3", http.StatusFound) })
	mux.HandleFunc("/3", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	s := httptest.NewServer(mux)
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL+"/0")
	if out.Status != domain.StatusDown || out.StatusCode != http.StatusInternalServerError {
		t.Fatalf("3-deep redirect chain ending in 500 should classify as Down, got %+v", out)
	}
}

func TestHTTPChecker_ConnectionRefused(t *testing.T) {
	// grab a port, then close it so the connect is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), "http://"+addr)
	if out.Status != domain.StatusDown {
		t.Fatalf("want Down, got %+v", out)
	}
	if out.Label != "Connection Refused" {
		t.Fatalf("want Connection Refused label, got %q", out.Label)
	}
	if out.StatusCode != 0 {
		t.Fatalf("transport failure should leave status code 0, got %d", out.StatusCode)
	}
}

func TestHTTPChecker_Timeout(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Status != domain.StatusDown {
		t.Fatalf("want Down on timeout, got %+v", out)
	}
	if out.Label != "Timeout" {
		t.Fatalf("want Timeout label, got %q", out.Label)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"example.com/health", "https://example.com/health"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, c := range cases {
		if got := NormalizeURL(c.in); got != c.want {
			t.Fatalf("NormalizeURL(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("Get \"https://example.com\": %w", err) }
	cases := []struct {
		err  error
		want string
	}{
		{wrap(&net.DNSError{Err: "no such host", Name: "example.invalid", IsNotFound: true}), "DNS Resolution Failed"},
		{wrap(syscall.ECONNREFUSED), "Connection Refused"},
		{wrap(syscall.ECONNRESET), "Connection Reset"},
		{wrap(context.DeadlineExceeded), "Timeout"},
		{wrap(errors.New("tls handshake failure")), "Network Error"},
	}
	for _, c := range cases {
		if got := classifyError(c.err); got != c.want {
			t.Fatalf("classifyError(%v)=%q want %q", c.err, got, c.want)
		}
	}
	if !strings.Contains(statusLabel(503), "Server Error") {
		t.Fatalf("statusLabel(503)=%q", statusLabel(503))
	}
}
