package db

import (
	"context"

	"github.com/poselab/dispatchd/pkg/domain"
)

// NewFolder is a request to register a video folder.
type NewFolder struct {
	Name string
	Path string
}

type Interface interface {
	// Register creates a new video folder record.
	//
	// Returns
	//
	// - int: id of the new folder
	//
	// - error: ErrConflict when the name or the path is taken.
	Register(ctx context.Context, spec NewFolder) (int, error)

	// Get retrieves folders in bulk.
	//
	// Ids not found are just omitted from the result.
	Get(ctx context.Context, ids []int) (map[int]domain.VideoFolder, error)

	// List retrieves all folders, ordered by id.
	List(ctx context.Context) ([]domain.VideoFolder, error)
}
