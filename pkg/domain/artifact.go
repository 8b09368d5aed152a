package domain

import (
	"fmt"
	"time"
)

type ArtifactStatus string

const (
	// the owning job has not reached a terminal status yet.
	ArtifactPending ArtifactStatus = "PENDING"

	// the owning job completed and the artifact file is resolved.
	ArtifactCompleted ArtifactStatus = "COMPLETED"

	// the owning job failed (or was lost); no output is expected.
	ArtifactFailed ArtifactStatus = "FAILED"
)

func (s ArtifactStatus) String() string {
	return string(s)
}

func AsArtifactStatus(status string) (ArtifactStatus, error) {
	switch s := ArtifactStatus(status); s {
	case ArtifactPending, ArtifactCompleted, ArtifactFailed:
		return s, nil
	default:
		return "", fmt.Errorf("'%s' is not ArtifactStatus", status)
	}
}

// ArtifactMode distinguishes the two flavours of the pipeline.
// COM artifacts locate the animal's center of mass; DANNCE artifacts are the
// full 3d pose.
type ArtifactMode string

const (
	ModeCom    ArtifactMode = "COM"
	ModeDannce ArtifactMode = "DANNCE"
)

func AsArtifactMode(mode string) (ArtifactMode, error) {
	switch m := ArtifactMode(mode); m {
	case ModeCom, ModeDannce:
		return m, nil
	default:
		return "", fmt.Errorf("'%s' is not ArtifactMode", mode)
	}
}

// Weights is the artifact of a train job: a directory of model checkpoints.
type Weights struct {
	Id     int
	Name   string
	Mode   ArtifactMode
	Status ArtifactStatus

	// directory holding the checkpoints, relative to the weights root.
	Path string

	// file name of the checkpoint to use. Resolved when Status becomes
	// ArtifactCompleted; empty before that.
	Filename string

	CreatedAt time.Time
}

// Prediction is the artifact of a predict job: pose data for one video folder.
type Prediction struct {
	Id     int
	Name   string
	Mode   ArtifactMode
	Status ArtifactStatus

	// directory holding the prediction output, relative to the predictions root.
	Path string

	// data file name within Path. Resolved when Status becomes
	// ArtifactCompleted; empty before that.
	Filename string

	// the video folder the prediction belongs to.
	FolderId int

	CreatedAt time.Time
}
