package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	"github.com/poselab/dispatchd/pkg/conn/db/postgres/pool/testenv"
	"github.com/poselab/dispatchd/pkg/domain"
	kdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	kpgjob "github.com/poselab/dispatchd/pkg/domain/job/db/postgres"
	"github.com/poselab/dispatchd/pkg/utils/cmp"
	"github.com/poselab/dispatchd/pkg/utils/try"
)

func registerProfile(ctx context.Context, t *testing.T, pool kpool.Pool, name string) int {
	t.Helper()
	conn := try.To(pool.Acquire(ctx)).OrFatal(t)
	defer conn.Release()

	var id int
	if err := conn.QueryRow(
		ctx,
		`
		insert into "runtime_profile" ("name", "memory_gb", "time_hours", "cpus", "partitions")
		values ($1, 16, 4, 8, '{gpu}')
		returning "id"
		`,
		name,
	).Scan(&id); err != nil {
		t.Fatal(err)
	}
	return id
}

func registerFolder(ctx context.Context, t *testing.T, pool kpool.Pool, name string) int {
	t.Helper()
	conn := try.To(pool.Acquire(ctx)).OrFatal(t)
	defer conn.Release()

	var id int
	if err := conn.QueryRow(
		ctx,
		`insert into "video_folder" ("name", "path") values ($1, $2) returning "id"`,
		name, "/videos/"+name,
	).Scan(&id); err != nil {
		t.Fatal(err)
	}
	return id
}

type artifactRow struct {
	Status   string
	Filename *string
}

func getArtifact(ctx context.Context, t *testing.T, pool kpool.Pool, table string, id int) artifactRow {
	t.Helper()
	conn := try.To(pool.Acquire(ctx)).OrFatal(t)
	defer conn.Release()

	var row artifactRow
	if err := conn.QueryRow(
		ctx,
		fmt.Sprintf(`select "status", "filename" from %q where "id" = $1`, table),
		id,
	).Scan(&row.Status, &row.Filename); err != nil {
		t.Fatal(err)
	}
	return row
}

func trainSpec(id string, profileId int, folderIds ...int) kdb.NewJob {
	return kdb.NewJob{
		Id:        id,
		Kind:      domain.Train,
		Name:      "train-" + id,
		ProfileId: profileId,
		Config:    "io_config: /configs/" + id + ".yaml",
		Artifact: kdb.NewArtifact{
			Name: "train-" + id,
			Mode: domain.ModeDannce,
			Path: "/data/weights/" + id,
		},
		InputFolderIds: folderIds,
	}
}

func predictSpec(id string, profileId int, folderId int, mode domain.ArtifactMode) kdb.NewJob {
	return kdb.NewJob{
		Id:        id,
		Kind:      domain.Predict,
		Name:      "predict-" + id,
		ProfileId: profileId,
		Config:    "io_config: /configs/" + id + ".yaml",
		Artifact: kdb.NewArtifact{
			Name:     "predict-" + id,
			Mode:     mode,
			Path:     "/data/predictions/" + id,
			FolderId: folderId,
		},
	}
}

func TestJob_Register(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("it records a train job, its pending weights and its input folders", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderA := registerFolder(ctx, t, pool, "mouse-a")
		folderB := registerFolder(ctx, t, pool, "mouse-b")

		spec := trainSpec("job-train-1", profileId, folderA, folderB)
		registered := try.To(testee.Register(ctx, spec)).OrFatal(t)

		if registered.JobId != spec.Id {
			t.Errorf("job id: got %s, want %s", registered.JobId, spec.Id)
		}
		if registered.ArtifactId == 0 {
			t.Error("artifact id should be assigned")
		}

		jobs := try.To(testee.Get(ctx, []string{spec.Id})).OrFatal(t)
		job, ok := jobs[spec.Id]
		if !ok {
			t.Fatal("registered job is not found")
		}
		if job.Kind != domain.Train || job.Name != spec.Name ||
			job.Lifecycle != domain.Registered ||
			job.ProfileId != profileId || job.Config != spec.Config {
			t.Errorf("job body: got %+v", job.JobBody)
		}
		expectedArtifact := domain.ArtifactRef{
			Id: registered.ArtifactId, Mode: domain.ModeDannce, Path: spec.Artifact.Path,
		}
		if job.Artifact != expectedArtifact {
			t.Errorf("artifact ref: got %+v, want %+v", job.Artifact, expectedArtifact)
		}
		if job.Execution != nil {
			t.Errorf("no execution should be attached yet: %+v", job.Execution)
		}
		if !cmp.SliceEq(job.InputFolderIds, []int{folderA, folderB}) {
			t.Errorf(
				"input folders: got %v, want %v",
				job.InputFolderIds, []int{folderA, folderB},
			)
		}

		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "PENDING" || weights.Filename != nil {
			t.Errorf("weights should be pending with no filename: %+v", weights)
		}
	})

	t.Run("it records a predict job bound to its folder", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")

		spec := predictSpec("job-predict-1", profileId, folderId, domain.ModeCom)
		registered := try.To(testee.Register(ctx, spec)).OrFatal(t)

		conn := try.To(pool.Acquire(ctx)).OrFatal(t)
		defer conn.Release()
		var boundFolder int
		if err := conn.QueryRow(
			ctx, `select "folder_id" from "prediction" where "id" = $1`, registered.ArtifactId,
		).Scan(&boundFolder); err != nil {
			t.Fatal(err)
		}
		if boundFolder != folderId {
			t.Errorf("folder: got %d, want %d", boundFolder, folderId)
		}
	})

	t.Run("it rejects a second job with a taken name", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")

		try.To(testee.Register(ctx, trainSpec("job-train-1", profileId, folderId))).OrFatal(t)

		again := trainSpec("job-train-2", profileId, folderId)
		again.Name = "train-job-train-1"
		again.Artifact.Name = "train-job-train-2"
		if _, err := testee.Register(ctx, again); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("it rejects a second artifact with a taken name", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")

		try.To(testee.Register(ctx, trainSpec("job-train-1", profileId, folderId))).OrFatal(t)

		again := trainSpec("job-train-2", profileId, folderId)
		again.Artifact.Name = "train-job-train-1"
		if _, err := testee.Register(ctx, again); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})
}

func TestJob_AttachExecution(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("it attaches the slurm handle and moves the job to submitted", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := try.To(
			testee.Register(ctx, trainSpec("job-train-1", profileId, folderId)),
		).OrFatal(t)

		if err := testee.AttachExecution(
			ctx, registered.JobId, 4041, "/data/logs/%j.out",
		); err != nil {
			t.Fatal(err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		job := jobs[registered.JobId]
		if job.Lifecycle != domain.Submitted {
			t.Errorf("lifecycle: got %s, want %s", job.Lifecycle, domain.Submitted)
		}
		expected := &domain.Execution{
			SlurmId: 4041, Status: domain.Pending, LogPath: "/data/logs/%j.out",
		}
		if !job.Execution.Equal(expected) {
			t.Errorf("execution: got %+v, want %+v", job.Execution, expected)
		}
	})

	t.Run("it rejects a second attach and keeps the first handle", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := try.To(
			testee.Register(ctx, trainSpec("job-train-1", profileId, folderId)),
		).OrFatal(t)

		if err := testee.AttachExecution(
			ctx, registered.JobId, 4041, "/data/logs/%j.out",
		); err != nil {
			t.Fatal(err)
		}

		err := testee.AttachExecution(ctx, registered.JobId, 5055, "/data/logs/%j.out")
		if !errors.Is(err, domain.ErrExecutionAttached) {
			t.Errorf("expected ErrExecutionAttached, got %v", err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		if job := jobs[registered.JobId]; job.Execution.SlurmId != 4041 {
			t.Errorf("the first handle should survive: got %d", job.Execution.SlurmId)
		}
	})

	t.Run("it fails for jobs it does not know", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		err := testee.AttachExecution(ctx, "no-such-job", 4041, "/data/logs/%j.out")
		if !errors.Is(err, domain.ErrMissing) {
			t.Errorf("expected ErrMissing, got %v", err)
		}
	})
}

func TestJob_ApplyObservation(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	// register a job and attach slurm id 4041, status PENDING.
	attached := func(t *testing.T, testee kdb.Interface, spec kdb.NewJob) kdb.Registered {
		t.Helper()
		registered := try.To(testee.Register(ctx, spec)).OrFatal(t)
		if err := testee.AttachExecution(
			ctx, registered.JobId, 4041, "/data/logs/%j.out",
		); err != nil {
			t.Fatal(err)
		}
		return registered
	}

	t.Run("it moves the execution status and leaves the pending artifact alone", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(t, testee, trainSpec("job-train-1", profileId, folderId))

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Running,
		}); err != nil {
			t.Fatal(err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		if job := jobs[registered.JobId]; job.Execution.Status != domain.Running {
			t.Errorf("status: got %s, want %s", job.Execution.Status, domain.Running)
		}
		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "PENDING" || weights.Filename != nil {
			t.Errorf("non-terminal delta should not touch the artifact: %+v", weights)
		}
	})

	t.Run("it rejects a delta computed against a stale status and writes nothing", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(t, testee, trainSpec("job-train-1", profileId, folderId))

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Running,
		}); err != nil {
			t.Fatal(err)
		}

		// computed against PENDING, but the row moved on since.
		err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Completed,
			ArtifactFile: "checkpoint-0300.mat",
		})
		if !errors.Is(err, domain.ErrStaleStatus) {
			t.Errorf("expected ErrStaleStatus, got %v", err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		if job := jobs[registered.JobId]; job.Execution.Status != domain.Running {
			t.Errorf("stale delta should not move the status: got %s", job.Execution.Status)
		}
		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "PENDING" || weights.Filename != nil {
			t.Errorf("stale delta should not touch the artifact: %+v", weights)
		}
	})

	t.Run("it propagates success to the weights exactly once", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(t, testee, trainSpec("job-train-1", profileId, folderId))

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Completed,
			ArtifactFile: "checkpoint-0300.mat",
		}); err != nil {
			t.Fatal(err)
		}

		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "COMPLETED" ||
			weights.Filename == nil || *weights.Filename != "checkpoint-0300.mat" {
			t.Errorf("weights should be completed with the resolved file: %+v", weights)
		}

		// a re-observation of the same terminal state passes the execution
		// guard but must not overwrite the resolved artifact.
		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Completed, To: domain.Completed,
			ArtifactFile: "checkpoint-9999.mat",
		}); err != nil {
			t.Fatal(err)
		}

		weights = getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Filename == nil || *weights.Filename != "checkpoint-0300.mat" {
			t.Errorf("the first resolution should survive: %+v", weights)
		}
	})

	t.Run("it propagates failure without resolving a file", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(t, testee, trainSpec("job-train-1", profileId, folderId))

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Failed,
		}); err != nil {
			t.Fatal(err)
		}

		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "FAILED" || weights.Filename != nil {
			t.Errorf("weights should be failed with no filename: %+v", weights)
		}
	})

	t.Run("it makes a completed COM prediction current for its folder", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(
			t, testee, predictSpec("job-predict-1", profileId, folderId, domain.ModeCom),
		)

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Completed,
			ArtifactFile: "com3d.mat",
		}); err != nil {
			t.Fatal(err)
		}

		conn := try.To(pool.Acquire(ctx)).OrFatal(t)
		defer conn.Release()
		var current *int
		if err := conn.QueryRow(
			ctx, `select "current_com_prediction" from "video_folder" where "id" = $1`, folderId,
		).Scan(&current); err != nil {
			t.Fatal(err)
		}
		if current == nil || *current != registered.ArtifactId {
			t.Errorf("current com prediction: got %v, want %d", current, registered.ArtifactId)
		}
	})

	t.Run("it leaves the folder pointer alone for DANNCE predictions", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := attached(
			t, testee, predictSpec("job-predict-1", profileId, folderId, domain.ModeDannce),
		)

		if err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: registered.JobId, SlurmId: 4041,
			From: domain.Pending, To: domain.Completed,
			ArtifactFile: "save_data_AVG0.mat",
		}); err != nil {
			t.Fatal(err)
		}

		conn := try.To(pool.Acquire(ctx)).OrFatal(t)
		defer conn.Release()
		var current *int
		if err := conn.QueryRow(
			ctx, `select "current_com_prediction" from "video_folder" where "id" = $1`, folderId,
		).Scan(&current); err != nil {
			t.Fatal(err)
		}
		if current != nil {
			t.Errorf("folder pointer should stay unset, got %d", *current)
		}
	})

	t.Run("it fails for executions it does not know", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		err := testee.ApplyObservation(ctx, domain.StatusChange{
			JobId: "no-such-job", SlurmId: 4041,
			From: domain.Pending, To: domain.Running,
		})
		if !errors.Is(err, domain.ErrMissing) {
			t.Errorf("expected ErrMissing, got %v", err)
		}
	})
}

func TestJob_Abandon(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("it abandons a registered job and fails its artifact", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := try.To(
			testee.Register(ctx, trainSpec("job-train-1", profileId, folderId)),
		).OrFatal(t)

		if err := testee.Abandon(ctx, registered.JobId); err != nil {
			t.Fatal(err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		if job := jobs[registered.JobId]; job.Lifecycle != domain.Abandoned {
			t.Errorf("lifecycle: got %s, want %s", job.Lifecycle, domain.Abandoned)
		}
		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "FAILED" || weights.Filename != nil {
			t.Errorf("weights should be failed with no filename: %+v", weights)
		}
	})

	t.Run("it does not touch jobs already submitted", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")
		registered := try.To(
			testee.Register(ctx, trainSpec("job-train-1", profileId, folderId)),
		).OrFatal(t)
		if err := testee.AttachExecution(
			ctx, registered.JobId, 4041, "/data/logs/%j.out",
		); err != nil {
			t.Fatal(err)
		}

		if err := testee.Abandon(ctx, registered.JobId); !errors.Is(err, domain.ErrMissing) {
			t.Errorf("expected ErrMissing, got %v", err)
		}

		jobs := try.To(testee.Get(ctx, []string{registered.JobId})).OrFatal(t)
		if job := jobs[registered.JobId]; job.Lifecycle != domain.Submitted {
			t.Errorf("lifecycle should stay submitted, got %s", job.Lifecycle)
		}
		weights := getArtifact(ctx, t, pool, "weights", registered.ArtifactId)
		if weights.Status != "PENDING" {
			t.Errorf("weights should stay pending, got %+v", weights)
		}
	})
}

func TestJob_FindRegisteredBefore(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("it lists only registered jobs older than the horizon", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgjob.New(pool)

		profileId := registerProfile(ctx, t, pool, "gpu-default")
		folderId := registerFolder(ctx, t, pool, "mouse-a")

		stuck := try.To(
			testee.Register(ctx, trainSpec("job-stuck", profileId, folderId)),
		).OrFatal(t)
		try.To(
			testee.Register(ctx, trainSpec("job-fresh", profileId, folderId)),
		).OrFatal(t)
		submitted := try.To(
			testee.Register(ctx, trainSpec("job-submitted", profileId, folderId)),
		).OrFatal(t)
		if err := testee.AttachExecution(
			ctx, submitted.JobId, 4041, "/data/logs/%j.out",
		); err != nil {
			t.Fatal(err)
		}

		conn := try.To(pool.Acquire(ctx)).OrFatal(t)
		defer conn.Release()
		for _, jobId := range []string{stuck.JobId, submitted.JobId} {
			if _, err := conn.Exec(
				ctx,
				`update "job" set "created_at" = "created_at" - interval '10 minutes' where "id" = $1`,
				jobId,
			); err != nil {
				t.Fatal(err)
			}
		}

		horizon := time.Now().Add(-5 * time.Minute)
		actual := try.To(testee.FindRegisteredBefore(ctx, horizon)).OrFatal(t)

		// the fresh registered job and the backdated submitted one
		// should both be passed over.
		if !cmp.SliceEq(actual, []string{stuck.JobId}) {
			t.Errorf("got %v, want %v", actual, []string{stuck.JobId})
		}
	})
}
