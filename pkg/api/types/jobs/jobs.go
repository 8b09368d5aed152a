package jobs

import (
	"time"

	"github.com/poselab/dispatchd/pkg/domain"
)

// Registered is the phase-1 response: ids the caller can poll with.
type Registered struct {
	JobId      string `json:"jobId"`
	ArtifactId int    `json:"artifactId"`
}

type Execution struct {
	SlurmId int64  `json:"slurmId"`
	Status  string `json:"status"`
	LogPath string `json:"logPath"`
}

func (e Execution) Equal(o Execution) bool {
	return e == o
}

type Summary struct {
	JobId     string    `json:"jobId"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Lifecycle string    `json:"lifecycle"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Summary) Equal(o Summary) bool {
	return s.JobId == o.JobId &&
		s.Kind == o.Kind &&
		s.Name == o.Name &&
		s.Lifecycle == o.Lifecycle &&
		s.CreatedAt.Equal(o.CreatedAt)
}

type Artifact struct {
	ArtifactId int    `json:"artifactId"`
	Mode       string `json:"mode"`
	Path       string `json:"path"`
}

type Detail struct {
	Summary
	ProfileId      int        `json:"profileId"`
	Artifact       Artifact   `json:"artifact"`
	InputFolderIds []int      `json:"inputFolderIds,omitempty"`
	Execution      *Execution `json:"execution,omitempty"`
}

func (d Detail) Equal(o Detail) bool {
	execEq := (d.Execution == nil && o.Execution == nil) ||
		(d.Execution != nil && o.Execution != nil && d.Execution.Equal(*o.Execution))

	if len(d.InputFolderIds) != len(o.InputFolderIds) {
		return false
	}
	for i := range d.InputFolderIds {
		if d.InputFolderIds[i] != o.InputFolderIds[i] {
			return false
		}
	}

	return d.Summary.Equal(o.Summary) &&
		d.ProfileId == o.ProfileId &&
		d.Artifact == o.Artifact &&
		execEq
}

func ComposeSummary(job domain.JobBody) Summary {
	return Summary{
		JobId:     job.Id,
		Kind:      string(job.Kind),
		Name:      job.Name,
		Lifecycle: string(job.Lifecycle),
		CreatedAt: job.CreatedAt,
	}
}

func ComposeDetail(job domain.Job) Detail {
	detail := Detail{
		Summary:   ComposeSummary(job.JobBody),
		ProfileId: job.ProfileId,
		Artifact: Artifact{
			ArtifactId: job.Artifact.Id,
			Mode:       string(job.Artifact.Mode),
			Path:       job.Artifact.Path,
		},
		InputFolderIds: job.InputFolderIds,
	}
	if job.Execution != nil {
		detail.Execution = &Execution{
			SlurmId: job.Execution.SlurmId,
			Status:  string(job.Execution.Status),
			LogPath: string(job.Execution.LogPath),
		}
	}
	return detail
}

// StatusChange is the webhook payload sent after reconciliation applies a
// transition.
type StatusChange struct {
	JobId        string `json:"jobId"`
	SlurmId      int64  `json:"slurmId"`
	From         string `json:"from"`
	To           string `json:"to"`
	ArtifactFile string `json:"artifactFile,omitempty"`
}

func ComposeStatusChange(change domain.StatusChange) StatusChange {
	return StatusChange{
		JobId:        change.JobId,
		SlurmId:      change.SlurmId,
		From:         string(change.From),
		To:           string(change.To),
		ArtifactFile: change.ArtifactFile,
	}
}

// ReconciliationResult summarises one on-demand reconciliation pass.
type ReconciliationResult struct {
	At      time.Time `json:"at"`
	Checked int       `json:"checked"`
	Changed int       `json:"changed"`
	Lost    int       `json:"lost"`
	Stale   int       `json:"stale"`
}

// SlurmDetail is the ad-hoc scontrol view of a submitted job.
type SlurmDetail struct {
	SlurmId  int64  `json:"slurmId"`
	JobState string `json:"jobState"`
	StdOut   string `json:"stdOut"`
}

// TrainRequest is the POST body of a train submission.
type TrainRequest struct {
	Name           string `json:"name,omitempty"`
	Mode           string `json:"mode"`
	ProfileId      int    `json:"profileId"`
	Config         string `json:"config"`
	InputFolderIds []int  `json:"inputFolderIds"`
}

// PredictRequest is the POST body of a predict submission.
type PredictRequest struct {
	Name      string `json:"name,omitempty"`
	Mode      string `json:"mode"`
	ProfileId int    `json:"profileId"`
	Config    string `json:"config"`
	FolderId  int    `json:"folderId"`
}
