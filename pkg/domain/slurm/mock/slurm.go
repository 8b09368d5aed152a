package mock

import (
	"context"
	"errors"

	dbmock "github.com/poselab/dispatchd/pkg/domain/internal/db/mock"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
)

type SlurmInterface struct {
	Impl struct {
		Submit func(ctx context.Context, script string, workdir string) (int64, error)
		Status func(ctx context.Context, slurmIds []int64) ([]slurm.Observation, error)
		Show   func(ctx context.Context, slurmId int64) (slurm.Detail, error)
	}

	Calls struct {
		Submit dbmock.CallLog[struct {
			Script  string
			Workdir string
		}]
		Status dbmock.CallLog[[]int64]
		Show   dbmock.CallLog[int64]
	}
}

func NewSlurmInterface() *SlurmInterface {
	return &SlurmInterface{}
}

var _ slurm.Interface = &SlurmInterface{}

func (m *SlurmInterface) Submit(ctx context.Context, script string, workdir string) (int64, error) {
	m.Calls.Submit = append(m.Calls.Submit, struct {
		Script  string
		Workdir string
	}{Script: script, Workdir: workdir})
	if m.Impl.Submit != nil {
		return m.Impl.Submit(ctx, script, workdir)
	}

	panic(errors.New("it should not be called"))
}

func (m *SlurmInterface) Status(ctx context.Context, slurmIds []int64) ([]slurm.Observation, error) {
	m.Calls.Status = append(m.Calls.Status, slurmIds)
	if m.Impl.Status != nil {
		return m.Impl.Status(ctx, slurmIds)
	}

	panic(errors.New("it should not be called"))
}

func (m *SlurmInterface) Show(ctx context.Context, slurmId int64) (slurm.Detail, error) {
	m.Calls.Show = append(m.Calls.Show, slurmId)
	if m.Impl.Show != nil {
		return m.Impl.Show(ctx, slurmId)
	}

	panic(errors.New("it should not be called"))
}
