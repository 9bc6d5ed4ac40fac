// Package health serves Kubernetes-style liveness and readiness
// probes. Checks run on a single background scheduler; each probe
// endpoint reports the most recent results without re-running checks
// on the request path.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type probe int

const (
	probeLiveness probe = iota
	probeReadiness
)

type check struct {
	name    string
	probe   probe
	timeout time.Duration
	fn      CheckFunc
}

// Service runs registered checks and answers probe requests.
type Service struct {
	mu      sync.Mutex
	checks  []check
	results map[string]error
	ready   bool
	cancel  context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true)
// once initialization finishes.
func New() *Service {
	return &Service{results: make(map[string]error)}
}

// AddLiveness registers a liveness check. Register checks before Start.
func (s *Service) AddLiveness(name string, timeout time.Duration, fn CheckFunc) {
	s.add(check{name: name, probe: probeLiveness, timeout: timeout, fn: fn})
}

// AddReadiness registers a readiness check. Register checks before Start.
func (s *Service) AddReadiness(name string, timeout time.Duration, fn CheckFunc) {
	s.add(check{name: name, probe: probeReadiness, timeout: timeout, fn: fn})
}

func (s *Service) add(c check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, c)
}

// Start launches the scheduler goroutine: all checks run once
// immediately and then every interval, until ctx is cancelled or Stop
// is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop cancels the scheduler. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.Lock()
	checks := make([]check, len(s.checks))
	copy(checks, s.checks)
	s.mu.Unlock()

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()

		s.mu.Lock()
		s.results[c.name] = err
		s.mu.Unlock()
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown so load balancers drain traffic before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady reports whether the service is marked ready and every
// readiness check last passed.
func (s *Service) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return false
	}
	for _, c := range s.checks {
		if c.probe != probeReadiness {
			continue
		}
		if err, ok := s.results[c.name]; ok && err != nil {
			return false
		}
	}
	return true
}

// failures returns name->message for checks of the given probe whose
// last run failed. Caller must not hold s.mu.
func (s *Service) failures(p probe) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	for _, c := range s.checks {
		if c.probe != p {
			continue
		}
		if err, ok := s.results[c.name]; ok && err != nil {
			out[c.name] = err.Error()
		}
	}
	return out
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint handles the /livez probe: 200 while every liveness
// check last passed, 503 with failure details otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.failures(probeLiveness))
}

// ReadyEndpoint handles the /readyz probe: 200 only when the service
// is marked ready and every readiness check last passed.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := s.failures(probeReadiness)

	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		failures["service"] = "not ready"
	}
	writeProbe(w, failures)
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
