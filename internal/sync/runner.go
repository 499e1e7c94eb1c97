// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"github.com/google/uuid"

	soukerr "github.com/souk-dev/souk/pkg/errors"
)

// Runner schedules synchronization runs on a background goroutine. The
// trigger is fire-and-forget: Start returns as soon as the run is
// scheduled, and the outcome surfaces only through logs and Last. At
// most one run per Runner is active at a time; a second Start while a
// run is in flight is a conflict.
type Runner struct {
	sync   *Synchronizer
	logger *slog.Logger

	mu       stdsync.Mutex
	active   bool
	done     chan struct{}
	last     Report
	haveLast bool
}

func NewRunner(s *Synchronizer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	closed := make(chan struct{})
	close(closed)
	return &Runner{
		sync:   s,
		logger: logger,
		done:   closed,
	}
}

// Start schedules one run and returns its id immediately. The run
// outlives the caller's request, so cancellation of ctx does not stop
// it; only scheduling failures are reported here.
func (r *Runner) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return "", soukerr.New(soukerr.CodeSyncRunConflict,
			"a synchronization run is already active",
			soukerr.FieldCollection(r.sync.index.Collection()),
		)
	}

	runID := uuid.NewString()
	done := make(chan struct{})
	r.active = true
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)

		rep, err := r.sync.run(context.WithoutCancel(ctx), runID)
		if err != nil {
			r.logger.Error("background synchronization failed", "run_id", runID, "error", err)
		}

		r.mu.Lock()
		r.active = false
		r.last = rep
		r.haveLast = true
		r.mu.Unlock()
	}()

	return runID, nil
}

// Done returns a channel closed when the current run finishes. With no
// run active it is already closed.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Last returns the most recent finished report, if any. Aborted runs
// report the counts committed before the failure.
func (r *Runner) Last() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.haveLast
}
