package db

import (
	"context"
	"time"

	"github.com/poselab/dispatchd/pkg/domain"
)

// NewJob is a request for Register (submission phase 1).
type NewJob struct {
	// uuid, generated by the caller.
	Id string

	Kind      domain.JobKind
	Name      string
	ProfileId int

	// serialized tool configuration. Stored as-is.
	Config string

	Artifact NewArtifact

	// folders a train job reads. Ignored for predict jobs.
	InputFolderIds []int
}

// NewArtifact describes the pending artifact registered together with a job.
type NewArtifact struct {
	Name string
	Mode domain.ArtifactMode

	// directory the artifact files will be written into.
	Path string

	// owning folder of a prediction. Ignored for weights.
	FolderId int
}

type Registered struct {
	JobId      string
	ArtifactId int
}

type Interface interface {
	// Register records a job and its pending artifact (submission phase 1).
	//
	// In a single transaction it inserts the artifact record (status PENDING),
	// the job record (lifecycle registered) and, for train jobs, the
	// input-folder relations.
	//
	// Returns domain.ErrConflict when the job or artifact name is taken.
	Register(ctx context.Context, spec NewJob) (Registered, error)

	// AttachExecution records the SLURM handle of a job (end of phase 2),
	// and moves the job lifecycle to submitted.
	//
	// Returns domain.ErrExecutionAttached when the job already has one,
	// and domain.ErrMissing when the job is not found.
	AttachExecution(ctx context.Context, jobId string, slurmId int64, logPath domain.LogTemplate) error

	// FindNonFinal returns submitted jobs whose execution status is not
	// terminal yet. This is the working set of the reconcile loop.
	FindNonFinal(ctx context.Context) ([]domain.Job, error)

	// ApplyObservation applies one observed status delta.
	//
	// In a single transaction it updates the execution status guarded by
	// `status = change.From`, and, when change.To is terminal, propagates
	// the outcome to the job's artifact (success -> COMPLETED with the
	// resolved filename, failure -> FAILED), touching only artifacts still
	// PENDING. Completed COM predictions become the current prediction of
	// their folder.
	//
	// When the execution status is not change.From anymore, it returns an
	// error wrapping domain.ErrStaleStatus and writes nothing.
	ApplyObservation(ctx context.Context, change domain.StatusChange) error

	// FindRegisteredBefore returns ids of jobs still in lifecycle registered
	// whose phase 1 happened before the given time.
	FindRegisteredBefore(ctx context.Context, before time.Time) ([]string, error)

	// Abandon gives up a job stuck in lifecycle registered: the lifecycle
	// becomes abandoned and the pending artifact FAILED.
	//
	// Jobs not in lifecycle registered are left as they are, with
	// domain.ErrMissing.
	Abandon(ctx context.Context, jobId string) error

	// Find returns ids of jobs matching the query, ordered by creation time.
	Find(ctx context.Context, query domain.JobFindQuery) ([]string, error)

	// Get retrieves jobs by id. Unknown ids are simply absent from the map.
	Get(ctx context.Context, jobIds []string) (map[string]domain.Job, error)
}
