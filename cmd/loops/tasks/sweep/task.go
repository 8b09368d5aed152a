// Package sweep abandons jobs which registered but never reached SLURM.
//
// Phase 2 of submission is detached, so a crash or scheduler outage between
// the phases leaves a job registered forever. This loop gives such jobs a
// terminal state instead.
package sweep

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/poselab/dispatchd/cmd/loops/recurring"
	"github.com/poselab/dispatchd/pkg/domain"
	jdb "github.com/poselab/dispatchd/pkg/domain/job/db"
)

// Pass is the outcome of one sweep.
type Pass struct {
	At        time.Time
	Abandoned int
}

func (p Pass) Equal(o Pass) bool {
	return p == o
}

func Seed() Pass {
	return Pass{}
}

type Option func(*task)

// WithClock swaps the time source. For tests.
func WithClock(clock func() time.Time) Option {
	return func(t *task) { t.clock = clock }
}

type task struct {
	logger  *log.Logger
	jobs    jdb.Interface
	timeout time.Duration
	clock   func() time.Time
}

func Task(
	logger *log.Logger,
	jobs jdb.Interface,
	timeout time.Duration,
	options ...Option,
) recurring.Task[Pass] {
	t := &task{logger: logger, jobs: jobs, timeout: timeout, clock: time.Now}
	for _, opt := range options {
		opt(t)
	}
	return t.run
}

func (t *task) run(ctx context.Context, _ Pass) (Pass, bool, error) {
	pass := Pass{At: t.clock()}

	jobIds, err := t.jobs.FindRegisteredBefore(ctx, pass.At.Add(-t.timeout))
	if err != nil {
		return pass, false, err
	}

	for _, jobId := range jobIds {
		if err := t.jobs.Abandon(ctx, jobId); err != nil {
			// a late phase 2 or another sweep may win the race.
			if errors.Is(err, domain.ErrMissing) {
				continue
			}
			return pass, 0 < pass.Abandoned, err
		}
		t.logger.Printf("job %s: abandoned, never submitted within %s", jobId, t.timeout)
		pass.Abandoned += 1
	}

	return pass, 0 < pass.Abandoned, nil
}
