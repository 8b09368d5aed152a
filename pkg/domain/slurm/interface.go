package slurm

import (
	"context"

	"github.com/poselab/dispatchd/pkg/domain"
)

// Observation is one scheduler-side view of a job, as reported by a batch
// status query.
type Observation struct {
	SlurmId int64
	Status  domain.SlurmStatus
	LogPath domain.LogTemplate
}

// Detail is the raw single-job view, for debugging.
type Detail struct {
	JobState string
	StdOut   string
}

type Interface interface {
	// Submit sends a batch script to the scheduler.
	//
	// The script is fed via stdin; the job starts in workdir.
	//
	// Returns
	//
	// - int64: scheduler-assigned job id
	//
	// - error: ErrSubmitParse when the scheduler accepted the invocation but
	// its output does not carry a job id.
	Submit(ctx context.Context, script string, workdir string) (int64, error)

	// Status queries the scheduler for the given job ids, in one invocation.
	//
	// Ids the scheduler no longer knows are simply absent from the result.
	// Any invocation failure (timeout, nonzero exit) fails the whole query;
	// there is no partial result.
	Status(ctx context.Context, slurmIds []int64) ([]Observation, error)

	// Show fetches the free-form single-job view.
	Show(ctx context.Context, slurmId int64) (Detail, error)
}
