package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	"github.com/poselab/dispatchd/pkg/domain"
	kpgerr "github.com/poselab/dispatchd/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/poselab/dispatchd/pkg/domain/folder/db"
)

type pgFolder struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgFolder{pool: pool}
}

func (f *pgFolder) Register(ctx context.Context, spec kdb.NewFolder) (int, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var id int
	if err := conn.QueryRow(
		ctx,
		`insert into "video_folder" ("name", "path") values ($1, $2) returning "id"`,
		spec.Name, spec.Path,
	).Scan(&id); err != nil {
		pgerr := new(pgconn.PgError)
		if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
			return 0, kpgerr.Conflict{Table: "video_folder", Identity: spec.Name}
		}
		return 0, err
	}
	return id, nil
}

func (f *pgFolder) Get(ctx context.Context, ids []int) (map[int]domain.VideoFolder, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "name", "path", "current_com_prediction", "created_at"
		from "video_folder" where "id" = ANY($1)
		`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := map[int]domain.VideoFolder{}
	for rows.Next() {
		var folder domain.VideoFolder
		if err := rows.Scan(
			&folder.Id, &folder.Name, &folder.Path,
			&folder.CurrentComPredictionId, &folder.CreatedAt,
		); err != nil {
			return nil, err
		}
		folders[folder.Id] = folder
	}
	return folders, rows.Err()
}

func (f *pgFolder) List(ctx context.Context) ([]domain.VideoFolder, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "name", "path", "current_com_prediction", "created_at"
		from "video_folder" order by "id"
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []domain.VideoFolder{}
	for rows.Next() {
		var folder domain.VideoFolder
		if err := rows.Scan(
			&folder.Id, &folder.Name, &folder.Path,
			&folder.CurrentComPredictionId, &folder.CreatedAt,
		); err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}
