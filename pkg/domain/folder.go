package domain

import "time"

// VideoFolder is an input data collection: one recording session's videos
// plus calibration data.
//
// Train jobs take folders as inputs (via a join table); predictions are owned
// by the folder they were computed for. A folder tracks which COM prediction
// is "current": the one DANNCE jobs on the folder should crop with.
type VideoFolder struct {
	Id   int
	Name string

	// path of the folder, relative to the video root. Unique.
	Path string

	// id of the current COM prediction, or nil if none completed yet.
	CurrentComPredictionId *int

	CreatedAt time.Time
}
