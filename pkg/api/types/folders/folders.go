package folders

import (
	"time"

	"github.com/poselab/dispatchd/pkg/domain"
)

type Detail struct {
	FolderId               int       `json:"folderId"`
	Name                   string    `json:"name"`
	Path                   string    `json:"path"`
	CurrentComPredictionId *int      `json:"currentComPredictionId,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

func (d Detail) Equal(o Detail) bool {
	currentEq := (d.CurrentComPredictionId == nil && o.CurrentComPredictionId == nil) ||
		(d.CurrentComPredictionId != nil && o.CurrentComPredictionId != nil &&
			*d.CurrentComPredictionId == *o.CurrentComPredictionId)

	return d.FolderId == o.FolderId &&
		d.Name == o.Name &&
		d.Path == o.Path &&
		d.CreatedAt.Equal(o.CreatedAt) &&
		currentEq
}

func ComposeDetail(folder domain.VideoFolder) Detail {
	return Detail{
		FolderId:               folder.Id,
		Name:                   folder.Name,
		Path:                   folder.Path,
		CurrentComPredictionId: folder.CurrentComPredictionId,
		CreatedAt:              folder.CreatedAt,
	}
}

// RegisterRequest is the POST body of a folder registration.
type RegisterRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
