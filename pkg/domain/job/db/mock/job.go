package mock

import (
	"context"
	"errors"
	"time"

	"github.com/poselab/dispatchd/pkg/domain"
	dbmock "github.com/poselab/dispatchd/pkg/domain/internal/db/mock"
	kdb "github.com/poselab/dispatchd/pkg/domain/job/db"
)

type JobInterface struct {
	Impl struct {
		Register             func(ctx context.Context, spec kdb.NewJob) (kdb.Registered, error)
		AttachExecution      func(ctx context.Context, jobId string, slurmId int64, logPath domain.LogTemplate) error
		FindNonFinal         func(ctx context.Context) ([]domain.Job, error)
		ApplyObservation     func(ctx context.Context, change domain.StatusChange) error
		FindRegisteredBefore func(ctx context.Context, before time.Time) ([]string, error)
		Abandon              func(ctx context.Context, jobId string) error
		Find                 func(ctx context.Context, query domain.JobFindQuery) ([]string, error)
		Get                  func(ctx context.Context, jobIds []string) (map[string]domain.Job, error)
	}

	Calls struct {
		Register        dbmock.CallLog[kdb.NewJob]
		AttachExecution dbmock.CallLog[struct {
			JobId   string
			SlurmId int64
			LogPath domain.LogTemplate
		}]
		FindNonFinal         dbmock.CallLog[struct{}]
		ApplyObservation     dbmock.CallLog[domain.StatusChange]
		FindRegisteredBefore dbmock.CallLog[time.Time]
		Abandon              dbmock.CallLog[string]
		Find                 dbmock.CallLog[domain.JobFindQuery]
		Get                  dbmock.CallLog[[]string]
	}
}

func NewJobInterface() *JobInterface {
	return &JobInterface{}
}

var _ kdb.Interface = &JobInterface{}

func (m *JobInterface) Register(ctx context.Context, spec kdb.NewJob) (kdb.Registered, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) AttachExecution(ctx context.Context, jobId string, slurmId int64, logPath domain.LogTemplate) error {
	m.Calls.AttachExecution = append(m.Calls.AttachExecution, struct {
		JobId   string
		SlurmId int64
		LogPath domain.LogTemplate
	}{JobId: jobId, SlurmId: slurmId, LogPath: logPath})
	if m.Impl.AttachExecution != nil {
		return m.Impl.AttachExecution(ctx, jobId, slurmId, logPath)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) FindNonFinal(ctx context.Context) ([]domain.Job, error) {
	m.Calls.FindNonFinal = append(m.Calls.FindNonFinal, struct{}{})
	if m.Impl.FindNonFinal != nil {
		return m.Impl.FindNonFinal(ctx)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) ApplyObservation(ctx context.Context, change domain.StatusChange) error {
	m.Calls.ApplyObservation = append(m.Calls.ApplyObservation, change)
	if m.Impl.ApplyObservation != nil {
		return m.Impl.ApplyObservation(ctx, change)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) FindRegisteredBefore(ctx context.Context, before time.Time) ([]string, error) {
	m.Calls.FindRegisteredBefore = append(m.Calls.FindRegisteredBefore, before)
	if m.Impl.FindRegisteredBefore != nil {
		return m.Impl.FindRegisteredBefore(ctx, before)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) Abandon(ctx context.Context, jobId string) error {
	m.Calls.Abandon = append(m.Calls.Abandon, jobId)
	if m.Impl.Abandon != nil {
		return m.Impl.Abandon(ctx, jobId)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) Find(ctx context.Context, query domain.JobFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("it should not be called"))
}

func (m *JobInterface) Get(ctx context.Context, jobIds []string) (map[string]domain.Job, error) {
	m.Calls.Get = append(m.Calls.Get, jobIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, jobIds)
	}

	panic(errors.New("it should not be called"))
}
