package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	"github.com/poselab/dispatchd/pkg/domain"
	kpgerr "github.com/poselab/dispatchd/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	"github.com/poselab/dispatchd/pkg/utils"
)

type pgJob struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgJob{pool: pool}
}

// artifactTable gives the table and the job column holding the artifact
// of jobs of this kind.
func artifactTable(kind domain.JobKind) (table string, jobColumn string) {
	if kind == domain.Train {
		return "weights", "weights_id"
	}
	return "prediction", "prediction_id"
}

func asConflict(err error, table string, identity string) error {
	pgerr := new(pgconn.PgError)
	if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
		return kpgerr.Conflict{Table: table, Identity: identity}
	}
	return err
}

func (j *pgJob) Register(ctx context.Context, spec kdb.NewJob) (kdb.Registered, error) {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return kdb.Registered{}, err
	}
	defer tx.Rollback(ctx)

	table, jobColumn := artifactTable(spec.Kind)

	var artifactId int
	switch spec.Kind {
	case domain.Train:
		err = tx.QueryRow(
			ctx,
			`
			insert into "weights" ("name", "mode", "path")
			values ($1, $2, $3)
			returning "id"
			`,
			spec.Artifact.Name, string(spec.Artifact.Mode), spec.Artifact.Path,
		).Scan(&artifactId)
	case domain.Predict:
		err = tx.QueryRow(
			ctx,
			`
			insert into "prediction" ("name", "mode", "path", "folder_id")
			values ($1, $2, $3, $4)
			returning "id"
			`,
			spec.Artifact.Name, string(spec.Artifact.Mode), spec.Artifact.Path,
			spec.Artifact.FolderId,
		).Scan(&artifactId)
	default:
		return kdb.Registered{}, fmt.Errorf("unknown job kind: %s", spec.Kind)
	}
	if err != nil {
		return kdb.Registered{}, asConflict(err, table, spec.Artifact.Name)
	}

	if _, err := tx.Exec(
		ctx,
		fmt.Sprintf(
			`
			insert into "job" ("id", "kind", "name", "profile_id", "config", %q)
			values ($1, $2, $3, $4, $5, $6)
			`,
			jobColumn,
		),
		spec.Id, string(spec.Kind), spec.Name, spec.ProfileId, spec.Config,
		artifactId,
	); err != nil {
		return kdb.Registered{}, asConflict(err, "job", spec.Name)
	}

	if spec.Kind == domain.Train {
		for _, folderId := range spec.InputFolderIds {
			if _, err := tx.Exec(
				ctx,
				`insert into "train_input" ("job_id", "folder_id") values ($1, $2)`,
				spec.Id, folderId,
			); err != nil {
				return kdb.Registered{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return kdb.Registered{}, err
	}

	return kdb.Registered{JobId: spec.Id, ArtifactId: artifactId}, nil
}

func (j *pgJob) AttachExecution(
	ctx context.Context, jobId string, slurmId int64, logPath domain.LogTemplate,
) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lifecycle string
	if err := tx.QueryRow(
		ctx, `select "lifecycle" from "job" where "id" = $1 for update`, jobId,
	).Scan(&lifecycle); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return kpgerr.Missing{Table: "job", Identity: jobId}
	}
	if lifecycle != string(domain.Registered) {
		return fmt.Errorf("%w: job %s", domain.ErrExecutionAttached, jobId)
	}

	if _, err := tx.Exec(
		ctx,
		`insert into "execution" ("job_id", "slurm_id", "log_path") values ($1, $2, $3)`,
		jobId, slurmId, string(logPath),
	); err != nil {
		pgerr := new(pgconn.PgError)
		if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: job %s", domain.ErrExecutionAttached, jobId)
		}
		return err
	}

	if _, err := tx.Exec(
		ctx,
		`update "job" set "lifecycle" = 'submitted' where "id" = $1`,
		jobId,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (j *pgJob) FindNonFinal(ctx context.Context) ([]domain.Job, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	nonFinal := utils.Map(
		domain.NonFinalStatuses(),
		func(s domain.SlurmStatus) string { return string(s) },
	)

	rows, err := conn.Query(
		ctx,
		`
		select "j"."id" from "job" as "j"
		inner join "execution" as "e" on "j"."id" = "e"."job_id"
		where "e"."status" = ANY($1::slurmStatus[])
		order by "j"."created_at", "j"."id"
		`,
		nonFinal,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobIds := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		jobIds = append(jobIds, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jobs, err := j.Get(ctx, jobIds)
	if err != nil {
		return nil, err
	}

	found := make([]domain.Job, 0, len(jobs))
	for _, id := range jobIds {
		if job, ok := jobs[id]; ok {
			found = append(found, job)
		}
	}
	return found, nil
}

func (j *pgJob) ApplyObservation(ctx context.Context, change domain.StatusChange) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		`
		update "execution" set "status" = $1
		where "job_id" = $2 and "status" = $3
		`,
		string(change.To), change.JobId, string(change.From),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current string
		if err := tx.QueryRow(
			ctx, `select "status" from "execution" where "job_id" = $1`, change.JobId,
		).Scan(&current); err != nil {
			return kpgerr.Missing{Table: "execution", Identity: change.JobId}
		}
		return domain.NewErrStaleStatus(change)
	}

	if change.To.IsTerminal() {
		if err := propagateToArtifact(ctx, tx, change); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// propagateToArtifact moves the artifact of the job out of PENDING, once.
//
// The `"status" = 'PENDING'` guard keeps terminal outcomes first-writer-wins:
// an artifact already resolved is left untouched.
func propagateToArtifact(ctx context.Context, tx kpool.Tx, change domain.StatusChange) error {
	var kind string
	var artifactId int
	if err := tx.QueryRow(
		ctx,
		`select "kind", coalesce("weights_id", "prediction_id") from "job" where "id" = $1`,
		change.JobId,
	).Scan(&kind, &artifactId); err != nil {
		return kpgerr.Missing{Table: "job", Identity: change.JobId}
	}

	jobKind, err := domain.AsJobKind(kind)
	if err != nil {
		return err
	}
	table, _ := artifactTable(jobKind)

	if change.To.IsSuccess() {
		tag, err := tx.Exec(
			ctx,
			fmt.Sprintf(
				`
				update %q set "status" = 'COMPLETED', "filename" = $1
				where "id" = $2 and "status" = 'PENDING'
				`,
				table,
			),
			change.ArtifactFile, artifactId,
		)
		if err != nil {
			return err
		}

		if jobKind == domain.Predict && tag.RowsAffected() == 1 {
			// a freshly completed COM prediction becomes the current one
			// of its folder.
			if _, err := tx.Exec(
				ctx,
				`
				update "video_folder" as "f" set "current_com_prediction" = "p"."id"
				from "prediction" as "p"
				where "p"."id" = $1 and "p"."mode" = 'COM' and "f"."id" = "p"."folder_id"
				`,
				artifactId,
			); err != nil {
				return err
			}
		}
		return nil
	}

	_, err = tx.Exec(
		ctx,
		fmt.Sprintf(
			`update %q set "status" = 'FAILED' where "id" = $1 and "status" = 'PENDING'`,
			table,
		),
		artifactId,
	)
	return err
}

func (j *pgJob) FindRegisteredBefore(ctx context.Context, before time.Time) ([]string, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id" from "job"
		where "lifecycle" = 'registered' and "created_at" < $1
		order by "created_at", "id"
		`,
		before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobIds := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		jobIds = append(jobIds, id)
	}
	return jobIds, rows.Err()
}

func (j *pgJob) Abandon(ctx context.Context, jobId string) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		`update "job" set "lifecycle" = 'abandoned' where "id" = $1 and "lifecycle" = 'registered'`,
		jobId,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return kpgerr.Missing{Table: "job (lifecycle registered)", Identity: jobId}
	}

	if err := propagateToArtifact(ctx, tx, domain.StatusChange{
		JobId: jobId, To: domain.LostToSlurm,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (j *pgJob) Find(ctx context.Context, query domain.JobFindQuery) ([]string, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql := `
	select distinct "j"."id", "j"."created_at" from "job" as "j"
	left join "execution" as "e" on "j"."id" = "e"."job_id"
	`
	conds := []string{}
	args := []interface{}{}

	if 0 < len(query.Kind) {
		args = append(args, utils.Map(
			query.Kind, func(k domain.JobKind) string { return string(k) },
		))
		conds = append(conds, fmt.Sprintf(`"j"."kind" = ANY($%d::jobKind[])`, len(args)))
	}
	if 0 < len(query.Status) {
		args = append(args, utils.Map(
			query.Status, func(s domain.SlurmStatus) string { return string(s) },
		))
		conds = append(conds, fmt.Sprintf(`"e"."status" = ANY($%d::slurmStatus[])`, len(args)))
	}
	if 0 < len(query.Lifecycle) {
		args = append(args, utils.Map(
			query.Lifecycle, func(l domain.JobLifecycle) string { return string(l) },
		))
		conds = append(conds, fmt.Sprintf(`"j"."lifecycle" = ANY($%d::jobLifecycle[])`, len(args)))
	}
	if query.Since != nil {
		args = append(args, *query.Since)
		conds = append(conds, fmt.Sprintf(`$%d <= "j"."created_at"`, len(args)))
	}

	for nth, cond := range conds {
		if nth == 0 {
			sql += " where " + cond
		} else {
			sql += " and " + cond
		}
	}
	sql += ` order by "j"."created_at", "j"."id"`

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobIds := []string{}
	for rows.Next() {
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		jobIds = append(jobIds, id)
	}
	return jobIds, rows.Err()
}

func (j *pgJob) Get(ctx context.Context, jobIds []string) (map[string]domain.Job, error) {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	jobs := map[string]domain.Job{}
	if len(jobIds) == 0 {
		return jobs, nil
	}

	rows, err := conn.Query(
		ctx,
		`
		select
			"j"."id", "j"."kind", "j"."name", "j"."lifecycle", "j"."created_at",
			"j"."profile_id", "j"."config",
			coalesce("j"."weights_id", "j"."prediction_id"),
			coalesce("w"."mode", "p"."mode"),
			coalesce("w"."path", "p"."path")
		from "job" as "j"
		left join "weights" as "w" on "j"."weights_id" = "w"."id"
		left join "prediction" as "p" on "j"."prediction_id" = "p"."id"
		where "j"."id" = ANY($1)
		`,
		jobIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			body            domain.JobBody
			kind, lifecycle string
			mode            string
		)
		if err := rows.Scan(
			&body.Id, &kind, &body.Name, &lifecycle, &body.CreatedAt,
			&body.ProfileId, &body.Config,
			&body.Artifact.Id, &mode, &body.Artifact.Path,
		); err != nil {
			return nil, err
		}
		if body.Kind, err = domain.AsJobKind(kind); err != nil {
			return nil, err
		}
		if body.Lifecycle, err = domain.AsJobLifecycle(lifecycle); err != nil {
			return nil, err
		}
		if body.Artifact.Mode, err = domain.AsArtifactMode(mode); err != nil {
			return nil, err
		}
		jobs[body.Id] = domain.Job{JobBody: body}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	execs, err := conn.Query(
		ctx,
		`select "job_id", "slurm_id", "status", "log_path" from "execution" where "job_id" = ANY($1)`,
		jobIds,
	)
	if err != nil {
		return nil, err
	}
	defer execs.Close()

	for execs.Next() {
		var (
			jobId, status, logPath string
			slurmId                int64
		)
		if err := execs.Scan(&jobId, &slurmId, &status, &logPath); err != nil {
			return nil, err
		}
		job, ok := jobs[jobId]
		if !ok {
			continue
		}
		parsed, err := domain.AsSlurmStatus(status)
		if err != nil {
			return nil, err
		}
		job.Execution = &domain.Execution{
			SlurmId: slurmId, Status: parsed, LogPath: domain.LogTemplate(logPath),
		}
		jobs[jobId] = job
	}
	if err := execs.Err(); err != nil {
		return nil, err
	}
	execs.Close()

	inputs, err := conn.Query(
		ctx,
		`select "job_id", "folder_id" from "train_input" where "job_id" = ANY($1) order by "folder_id"`,
		jobIds,
	)
	if err != nil {
		return nil, err
	}
	defer inputs.Close()

	for inputs.Next() {
		var jobId string
		var folderId int
		if err := inputs.Scan(&jobId, &folderId); err != nil {
			return nil, err
		}
		job, ok := jobs[jobId]
		if !ok {
			continue
		}
		job.InputFolderIds = append(job.InputFolderIds, folderId)
		jobs[jobId] = job
	}
	return jobs, inputs.Err()
}
