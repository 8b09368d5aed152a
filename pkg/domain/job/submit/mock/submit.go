package mock

import (
	"context"
	"errors"

	dbmock "github.com/poselab/dispatchd/pkg/domain/internal/db/mock"
	jdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	"github.com/poselab/dispatchd/pkg/domain/job/submit"
)

type SubmitInterface struct {
	Impl struct {
		Submit func(ctx context.Context, req submit.Request) (jdb.Registered, error)
	}

	Calls struct {
		Submit dbmock.CallLog[submit.Request]
	}
}

func NewSubmitInterface() *SubmitInterface {
	return &SubmitInterface{}
}

var _ submit.Interface = &SubmitInterface{}

func (m *SubmitInterface) Submit(ctx context.Context, req submit.Request) (jdb.Registered, error) {
	m.Calls.Submit = append(m.Calls.Submit, req)
	if m.Impl.Submit != nil {
		return m.Impl.Submit(ctx, req)
	}

	panic(errors.New("it should not be called"))
}
