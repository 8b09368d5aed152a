// Package reconcile polls SLURM and folds what it reports back into the
// job store.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/poselab/dispatchd/cmd/loops/hook"
	"github.com/poselab/dispatchd/cmd/loops/recurring"
	apijobs "github.com/poselab/dispatchd/pkg/api/types/jobs"
	"github.com/poselab/dispatchd/pkg/domain"
	"github.com/poselab/dispatchd/pkg/domain/job/artifact"
	jdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
	"github.com/poselab/dispatchd/pkg/utils"
)

// Pass is the outcome of one reconciliation pass.
type Pass struct {
	At      time.Time
	Checked int
	Changed int
	Lost    int
	Stale   int
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
	logger        *log.Logger
	jobs          jdb.Interface
	gateway       slurm.Interface
	resolver      artifact.Interface
	grace         time.Duration
	lifecycleHook hook.Hook[apijobs.StatusChange, struct{}]
	clock         func() time.Time
}

// Task detects status changes of submitted jobs and applies them, one
// scheduler query per pass.
//
// A gateway failure aborts the pass before any write. Per-change write
// conflicts (another pass got there first) are counted and skipped.
func Task(
	logger *log.Logger,
	jobs jdb.Interface,
	gateway slurm.Interface,
	resolver artifact.Interface,
	grace time.Duration,
	lifecycleHook hook.Hook[apijobs.StatusChange, struct{}],
	options ...Option,
) recurring.Task[Pass] {
	t := &task{
		logger:        logger,
		jobs:          jobs,
		gateway:       gateway,
		resolver:      resolver,
		grace:         grace,
		lifecycleHook: lifecycleHook,
		clock:         time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t.run
}

func (t *task) run(ctx context.Context, _ Pass) (Pass, bool, error) {
	pass := Pass{At: t.clock()}

	nonFinal, err := t.jobs.FindNonFinal(ctx)
	if err != nil {
		return pass, false, err
	}
	if len(nonFinal) == 0 {
		return pass, false, nil
	}

	submitted := utils.Filter(nonFinal, func(j domain.Job) bool { return j.Execution != nil })
	slurmIds := utils.Map(submitted, func(j domain.Job) int64 { return j.Execution.SlurmId })

	observations, err := t.gateway.Status(ctx, slurmIds)
	if err != nil {
		return pass, false, err
	}
	observed := utils.ToMap(observations, func(o slurm.Observation) int64 { return o.SlurmId })

	for _, job := range submitted {
		pass.Checked += 1
		exec := job.Execution

		var change *domain.StatusChange
		if obs, ok := observed[exec.SlurmId]; ok {
			if obs.Status == exec.Status {
				continue
			}
			change = &domain.StatusChange{
				JobId:   job.Id,
				SlurmId: exec.SlurmId,
				From:    exec.Status,
				To:      obs.Status,
			}
		} else {
			// The scheduler no longer knows the id. Right after submission
			// that can be accounting lag, so young jobs get a grace period.
			if pass.At.Sub(job.CreatedAt) < t.grace {
				continue
			}
			change = &domain.StatusChange{
				JobId:   job.Id,
				SlurmId: exec.SlurmId,
				From:    exec.Status,
				To:      domain.LostToSlurm,
			}
		}

		if change.To.IsSuccess() {
			file, err := t.resolver.Resolve(job.Kind, job.Artifact.Mode, job.Artifact.Path)
			if err != nil {
				// the data file can show up a moment after sacct reports
				// COMPLETED. Leave the job as is and retry next pass.
				t.logger.Printf("job %s: %s", job.Id, err)
				continue
			}
			change.ArtifactFile = file
		}

		if err := t.jobs.ApplyObservation(ctx, *change); err != nil {
			if errors.Is(err, domain.ErrStaleStatus) {
				pass.Stale += 1
				continue
			}
			return pass, true, err
		}

		if change.To == domain.LostToSlurm {
			pass.Lost += 1
		} else {
			pass.Changed += 1
		}

		if err := t.notify(*change); err != nil {
			t.logger.Printf("job %s: %s", job.Id, err)
		}
	}

	return pass, 0 < pass.Changed+pass.Lost, nil
}

func (t *task) notify(change domain.StatusChange) error {
	if err := t.lifecycleHook.After(apijobs.ComposeStatusChange(change)); err != nil {
		return fmt.Errorf("%w: lifecycle hook: %s", hook.ErrHookFailed, err)
	}
	return nil
}
