// Package diagnostics runs connectivity checks against the gateway backends.
// Every check races a fixed timeout and reports whichever settles first.
package diagnostics

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultTimeout = 5 * time.Second

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Check is one named connectivity probe
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// PingCheck probes a backend that can report reachability
func PingCheck(name string, p gateway.Pinger) Check {
	return Check{Name: name, Run: p.Ping}
}

type Result struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

type Report struct {
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
	Results   []Result  `json:"results"`
}

type Runner struct {
	checks  []Check
	timeout time.Duration
}

func NewRunner(timeout time.Duration, checks ...Check) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{checks: checks, timeout: timeout}
}

// Run executes every check concurrently. Results keep the order of the checks.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{
		OK:        true,
		CheckedAt: time.Now().UTC(),
		Results:   make([]Result, len(r.checks)),
	}

	var g errgroup.Group
	for i, check := range r.checks {
		g.Go(func() error {
			report.Results[i] = r.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		if res.Status != StatusOK {
			report.OK = false
			log.Warn().Str("check", res.Name).Str("status", string(res.Status)).Str("error", res.Error).Msg("diagnostic check failed")
		}
	}
	return report
}

func (r *Runner) run(ctx context.Context, check Check) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1) // buffered: a check that outlives the timeout must not block
	go func() {
		done <- check.Run(ctx)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	res := Result{Name: check.Name}
	select {
	case err := <-done:
		switch {
		case err == nil:
			res.Status = StatusOK
		case errors.Is(err, context.DeadlineExceeded):
			res.Status = StatusTimeout
			res.Error = err.Error()
		default:
			res.Status = StatusFailed
			res.Error = err.Error()
		}
	case <-timer.C:
		res.Status = StatusTimeout
		res.Error = "no response within " + r.timeout.String()
	}
	res.Elapsed = time.Since(start)
	res.ElapsedMS = res.Elapsed.Milliseconds()
	return res
}
