package mock

import (
	"context"
	"errors"

	"github.com/poselab/dispatchd/pkg/domain"
	dbmock "github.com/poselab/dispatchd/pkg/domain/internal/db/mock"
	kdb "github.com/poselab/dispatchd/pkg/domain/profile/db"
)

type ProfileInterface struct {
	Impl struct {
		Register func(ctx context.Context, spec kdb.NewProfile) (int, error)
		Get      func(ctx context.Context, ids []int) (map[int]domain.RuntimeProfile, error)
		List     func(ctx context.Context) ([]domain.RuntimeProfile, error)
	}

	Calls struct {
		Register dbmock.CallLog[kdb.NewProfile]
		Get      dbmock.CallLog[[]int]
		List     dbmock.CallLog[struct{}]
	}
}

func NewProfileInterface() *ProfileInterface {
	return &ProfileInterface{}
}

var _ kdb.Interface = &ProfileInterface{}

func (m *ProfileInterface) Register(ctx context.Context, spec kdb.NewProfile) (int, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *ProfileInterface) Get(ctx context.Context, ids []int) (map[int]domain.RuntimeProfile, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, ids)
	}

	panic(errors.New("it should not be called"))
}

func (m *ProfileInterface) List(ctx context.Context) ([]domain.RuntimeProfile, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List != nil {
		return m.Impl.List(ctx)
	}

	panic(errors.New("it should not be called"))
}
