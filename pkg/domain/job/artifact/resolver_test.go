package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poselab/dispatchd/pkg/domain"
	"github.com/poselab/dispatchd/pkg/domain/job/artifact"
	"github.com/poselab/dispatchd/pkg/utils/try"
)

func touch(t *testing.T, elem ...string) {
	t.Helper()
	path := filepath.Join(elem...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolver_weights(t *testing.T) {
	t.Run("it prefers checkpoint-final.pth", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "w1", "checkpoint-final.pth")
		touch(t, root, "w1", "checkpoint-epoch50.pth")

		resolver := artifact.Resolver{WeightsRoot: root}
		got := try.To(resolver.Resolve(domain.Train, domain.ModeCom, "w1")).OrFatal(t)
		if got != "checkpoint-final.pth" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("it falls back to the highest epoch checkpoint", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "w1", "checkpoint-epoch9.pth")
		touch(t, root, "w1", "checkpoint-epoch10.pth")
		touch(t, root, "w1", "checkpoint-epoch2.pth")
		touch(t, root, "w1", "notes.txt")

		resolver := artifact.Resolver{WeightsRoot: root}
		got := try.To(resolver.Resolve(domain.Train, domain.ModeCom, "w1")).OrFatal(t)
		if got != "checkpoint-epoch10.pth" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("it fails when no checkpoint exists", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "w1", "notes.txt")

		resolver := artifact.Resolver{WeightsRoot: root}
		_, err := resolver.Resolve(domain.Train, domain.ModeCom, "w1")
		if !errors.Is(err, artifact.ErrNoArtifactFile) {
			t.Errorf("expected ErrNoArtifactFile, got %v", err)
		}
	})

	t.Run("it fails when the directory is missing", func(t *testing.T) {
		resolver := artifact.Resolver{WeightsRoot: t.TempDir()}
		_, err := resolver.Resolve(domain.Train, domain.ModeCom, "nothing-here")
		if !errors.Is(err, artifact.ErrNoArtifactFile) {
			t.Errorf("expected ErrNoArtifactFile, got %v", err)
		}
	})
}

func TestResolver_predictions(t *testing.T) {
	t.Run("COM prefers com3d.mat over com3d0.mat", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "p1", "com3d.mat")
		touch(t, root, "p1", "com3d0.mat")

		resolver := artifact.Resolver{PredictionsRoot: root}
		got := try.To(resolver.Resolve(domain.Predict, domain.ModeCom, "p1")).OrFatal(t)
		if got != "com3d.mat" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("COM falls back to com3d0.mat", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "p1", "com3d0.mat")

		resolver := artifact.Resolver{PredictionsRoot: root}
		got := try.To(resolver.Resolve(domain.Predict, domain.ModeCom, "p1")).OrFatal(t)
		if got != "com3d0.mat" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("DANNCE resolves save_data_AVG0.mat", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "p1", "save_data_AVG0.mat")

		resolver := artifact.Resolver{PredictionsRoot: root}
		got := try.To(resolver.Resolve(domain.Predict, domain.ModeDannce, "p1")).OrFatal(t)
		if got != "save_data_AVG0.mat" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("it fails when the data file is absent", func(t *testing.T) {
		resolver := artifact.Resolver{PredictionsRoot: t.TempDir()}
		_, err := resolver.Resolve(domain.Predict, domain.ModeDannce, "p1")
		if !errors.Is(err, artifact.ErrNoArtifactFile) {
			t.Errorf("expected ErrNoArtifactFile, got %v", err)
		}
	})
}
