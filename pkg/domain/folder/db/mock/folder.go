package mock

import (
	"context"
	"errors"

	"github.com/poselab/dispatchd/pkg/domain"
	kdb "github.com/poselab/dispatchd/pkg/domain/folder/db"
	dbmock "github.com/poselab/dispatchd/pkg/domain/internal/db/mock"
)

type FolderInterface struct {
	Impl struct {
		Register func(ctx context.Context, spec kdb.NewFolder) (int, error)
		Get      func(ctx context.Context, ids []int) (map[int]domain.VideoFolder, error)
		List     func(ctx context.Context) ([]domain.VideoFolder, error)
	}

	Calls struct {
		Register dbmock.CallLog[kdb.NewFolder]
		Get      dbmock.CallLog[[]int]
		List     dbmock.CallLog[struct{}]
	}
}

func NewFolderInterface() *FolderInterface {
	return &FolderInterface{}
}

var _ kdb.Interface = &FolderInterface{}

func (m *FolderInterface) Register(ctx context.Context, spec kdb.NewFolder) (int, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *FolderInterface) Get(ctx context.Context, ids []int) (map[int]domain.VideoFolder, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, ids)
	}

	panic(errors.New("it should not be called"))
}

func (m *FolderInterface) List(ctx context.Context) ([]domain.VideoFolder, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List != nil {
		return m.Impl.List(ctx)
	}

	panic(errors.New("it should not be called"))
}
