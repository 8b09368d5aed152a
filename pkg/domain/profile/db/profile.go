package db

import (
	"context"

	"github.com/poselab/dispatchd/pkg/domain"
)

// NewProfile is a request to register a runtime profile.
type NewProfile struct {
	Name       string
	MemoryGB   int
	TimeHours  int
	CPUs       int
	Partitions []string
}

type Interface interface {
	// Register creates a new runtime profile.
	//
	// Returns
	//
	// - int: id of the new profile
	//
	// - error: ErrConflict when the name is taken.
	Register(ctx context.Context, spec NewProfile) (int, error)

	// Get retrieves profiles in bulk.
	//
	// Ids not found are just omitted from the result.
	Get(ctx context.Context, ids []int) (map[int]domain.RuntimeProfile, error)

	// List retrieves all profiles, ordered by id.
	List(ctx context.Context) ([]domain.RuntimeProfile, error)
}
