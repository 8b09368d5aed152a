// Package artifact locates the data files finished jobs leave behind.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/poselab/dispatchd/pkg/domain"
)

var ErrNoArtifactFile = errors.New("no artifact file found")

type Interface interface {
	Resolve(kind domain.JobKind, mode domain.ArtifactMode, path string) (string, error)
}

// Resolver maps a successful job to the filename of the artifact it wrote.
//
// Training leaves checkpoints under WeightsRoot, predictions leave .mat
// files under PredictionsRoot; both are addressed by the artifact's
// relative path.
type Resolver struct {
	WeightsRoot     string
	PredictionsRoot string
}

var _ Interface = Resolver{}

func (r Resolver) Resolve(kind domain.JobKind, mode domain.ArtifactMode, path string) (string, error) {
	switch kind {
	case domain.Train:
		return r.resolveWeights(path)
	case domain.Predict:
		return r.resolvePrediction(mode, path)
	}
	return "", fmt.Errorf("unknown job kind: %s", kind)
}

var reCheckpoint = regexp.MustCompile(`^checkpoint-epoch(\d+)\.pth$`)

// resolveWeights picks checkpoint-final.pth when training ran to
// completion, or the highest-epoch checkpoint otherwise.
func (r Resolver) resolveWeights(path string) (string, error) {
	dir := filepath.Join(r.WeightsRoot, path)

	if exists(filepath.Join(dir, "checkpoint-final.pth")) {
		return "checkpoint-final.pth", nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrNoArtifactFile, dir, err)
	}

	best := ""
	bestEpoch := -1
	for _, entry := range entries {
		m := reCheckpoint.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		epoch, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if bestEpoch < epoch {
			best, bestEpoch = entry.Name(), epoch
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no checkpoint in %s", ErrNoArtifactFile, dir)
	}
	return best, nil
}

func (r Resolver) resolvePrediction(mode domain.ArtifactMode, path string) (string, error) {
	dir := filepath.Join(r.PredictionsRoot, path)

	var candidates []string
	switch mode {
	case domain.ModeCom:
		candidates = []string{"com3d.mat", "com3d0.mat"}
	case domain.ModeDannce:
		candidates = []string{"save_data_AVG0.mat"}
	default:
		return "", fmt.Errorf("unknown artifact mode: %s", mode)
	}

	for _, name := range candidates {
		if exists(filepath.Join(dir, name)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v in %s", ErrNoArtifactFile, candidates, dir)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
