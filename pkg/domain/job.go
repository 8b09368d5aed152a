package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type JobKind string

const (
	// Train a model. The job's artifact is a Weights record.
	Train JobKind = "TRAIN"

	// Run inference with a trained model. The job's artifact is a Prediction record.
	Predict JobKind = "PREDICT"
)

func (k JobKind) String() string {
	return string(k)
}

func AsJobKind(s string) (JobKind, error) {
	switch s {
	case string(Train):
		return Train, nil
	case string(Predict):
		return Predict, nil
	default:
		return "", fmt.Errorf("'%s' is not JobKind", s)
	}
}

// Lifecycle of a Job with respect to phase-1/phase-2 submission.
type JobLifecycle string

const (
	// phase 1 is done: the job and its artifact are recorded,
	// but nothing has been sent to SLURM yet.
	Registered JobLifecycle = "registered"

	// phase 2 is done: SLURM accepted the job and an Execution is attached.
	Submitted JobLifecycle = "submitted"

	// phase 2 never finished and the sweep loop gave the job up.
	Abandoned JobLifecycle = "abandoned"
)

func (l JobLifecycle) String() string {
	return string(l)
}

func AsJobLifecycle(s string) (JobLifecycle, error) {
	switch s {
	case string(Registered):
		return Registered, nil
	case string(Submitted):
		return Submitted, nil
	case string(Abandoned):
		return Abandoned, nil
	default:
		return "", fmt.Errorf("'%s' is not JobLifecycle", s)
	}
}

// SlurmStatus is the externally-observed state of an Execution.
//
// All values except LostToSlurm are verbatim SLURM state names.
type SlurmStatus string

const (
	Pending    SlurmStatus = "PENDING"
	Running    SlurmStatus = "RUNNING"
	Completing SlurmStatus = "COMPLETING"
	Suspended  SlurmStatus = "SUSPENDED"
	Preempted  SlurmStatus = "PREEMPTED"
	Stopped    SlurmStatus = "STOPPED"

	Completed SlurmStatus = "COMPLETED"

	Cancelled   SlurmStatus = "CANCELLED"
	Failed      SlurmStatus = "FAILED"
	NodeFail    SlurmStatus = "NODE_FAIL"
	OutOfMemory SlurmStatus = "OUT_OF_MEMORY"
	Timeout     SlurmStatus = "TIMEOUT"

	// LostToSlurm means the job vanished from SLURM's bookkeeping:
	// sacct was queried for the job id and did not return it, after the
	// grace period since submission had passed.
	//
	// This value is dispatchd-internal. SLURM never reports it.
	LostToSlurm SlurmStatus = "LOST_TO_SLURM"
)

func (s SlurmStatus) String() string {
	return string(s)
}

// Statuses which SLURM may still change on its own.
//
// Executions in these statuses are the working set of the reconcile loop.
func NonFinalStatuses() []SlurmStatus {
	return []SlurmStatus{Pending, Running, Completing, Suspended, Preempted, Stopped}
}

// Statuses meaning the execution produced its output.
func SuccessStatuses() []SlurmStatus {
	return []SlurmStatus{Completed}
}

// Statuses meaning the execution is over without producing its output.
func FailureStatuses() []SlurmStatus {
	return []SlurmStatus{Cancelled, Failed, NodeFail, OutOfMemory, Timeout, LostToSlurm}
}

func (s SlurmStatus) IsNonFinal() bool {
	switch s {
	case Pending, Running, Completing, Suspended, Preempted, Stopped:
		return true
	default:
		return false
	}
}

func (s SlurmStatus) IsSuccess() bool {
	return s == Completed
}

func (s SlurmStatus) IsFailure() bool {
	switch s {
	case Cancelled, Failed, NodeFail, OutOfMemory, Timeout, LostToSlurm:
		return true
	default:
		return false
	}
}

// IsTerminal = IsSuccess || IsFailure. Terminal statuses are never left again.
func (s SlurmStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

func AsSlurmStatus(status string) (SlurmStatus, error) {
	s := SlurmStatus(status)
	switch s {
	case Pending, Running, Completing, Suspended, Preempted, Stopped,
		Completed,
		Cancelled, Failed, NodeFail, OutOfMemory, Timeout, LostToSlurm:
		return s, nil
	default:
		return "", fmt.Errorf("'%s' is not SlurmStatus", status)
	}
}

// LogTemplate is a log file path as SLURM knows it, containing the "%j"
// placeholder for the slurm job id.
//
// Readers of the field should call Resolve rather than substituting ad hoc.
type LogTemplate string

const slurmJobIdPlaceholder = "%j"

func (t LogTemplate) String() string {
	return string(t)
}

// Resolve substitutes the slurm job id into the template.
func (t LogTemplate) Resolve(slurmId int64) string {
	return strings.ReplaceAll(string(t), slurmJobIdPlaceholder, fmt.Sprintf("%d", slurmId))
}

// Execution is the SLURM-side handle of a submitted Job.
//
// Identity (SlurmId, LogPath) is set once at the end of submission phase 2
// and never changes; Status is mutated only by the reconcile loop, and once
// terminal it never changes again.
type Execution struct {
	SlurmId int64
	Status  SlurmStatus
	LogPath LogTemplate
}

func (e *Execution) Equal(other *Execution) bool {
	if e == nil || other == nil {
		return e == nil && other == nil
	}
	return e.SlurmId == other.SlurmId &&
		e.Status == other.Status &&
		e.LogPath == other.LogPath
}

// Job is a request to run a train or predict workload.
type Job struct {
	JobBody

	// Folder ids the job trains on. Set for train jobs only.
	InputFolderIds []int
}

type JobBody struct {
	Id        string
	Kind      JobKind
	Name      string
	Lifecycle JobLifecycle
	CreatedAt time.Time

	ProfileId int

	// serialized tool configuration, written to a file in phase 2.
	// dispatchd does not interpret it.
	Config string

	Artifact ArtifactRef

	// nil while Lifecycle == Registered.
	Execution *Execution
}

// ArtifactRef locates the artifact a Job writes, without loading the record.
//
// Kind tells which table it lives in: Train jobs write Weights,
// Predict jobs write a Prediction.
type ArtifactRef struct {
	Id   int
	Mode ArtifactMode

	// directory SLURM writes the artifact files into.
	Path string
}

func (j *Job) Equal(other *Job) bool {
	return j.JobBody.Equal(&other.JobBody)
}

func (jb *JobBody) Equal(other *JobBody) bool {
	return jb.Id == other.Id &&
		jb.Kind == other.Kind &&
		jb.Name == other.Name &&
		jb.Lifecycle == other.Lifecycle &&
		jb.CreatedAt.Equal(other.CreatedAt) &&
		jb.ProfileId == other.ProfileId &&
		jb.Artifact == other.Artifact &&
		jb.Execution.Equal(other.Execution)
}

// parameters to query jobs.
//
// When all dimensions match a job, this query matches the job.
type JobFindQuery struct {
	// match if the job is one of these kinds. nil or empty = match any.
	Kind []JobKind

	// match if the execution status is one of these. nil or empty = match any.
	Status []SlurmStatus

	// match if the job lifecycle is one of these. nil or empty = match any.
	Lifecycle []JobLifecycle

	// match jobs created at this time or later.
	Since *time.Time
}

// StatusChange is one observed status delta, to be applied to an Execution
// and propagated to the owning Job's artifact.
type StatusChange struct {
	JobId   string
	SlurmId int64

	// stored status the delta was computed against. Used as the optimistic
	// guard: if the row moved on since, the change is stale.
	From SlurmStatus

	To SlurmStatus

	// resolved artifact filename. Meaningful only when To is a success status.
	ArtifactFile string
}

var (
	// the entity was looked up and is not there.
	ErrMissing = errors.New("missing")

	// a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")

	// the execution status in the database is not the one the change was
	// computed against. Another reconcile pass has already applied it.
	ErrStaleStatus = errors.New("stale status change")

	// an Execution is already attached to the job.
	ErrExecutionAttached = errors.New("execution is already attached")
)

func NewErrStaleStatus(change StatusChange) error {
	return fmt.Errorf(
		"%w: slurm job %d: %s -> %s",
		ErrStaleStatus, change.SlurmId, change.From, change.To,
	)
}
