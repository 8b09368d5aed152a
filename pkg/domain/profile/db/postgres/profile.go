package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	"github.com/poselab/dispatchd/pkg/domain"
	kpgerr "github.com/poselab/dispatchd/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/poselab/dispatchd/pkg/domain/profile/db"
)

type pgProfile struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.Interface {
	return &pgProfile{pool: pool}
}

func (p *pgProfile) Register(ctx context.Context, spec kdb.NewProfile) (int, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var id int
	if err := conn.QueryRow(
		ctx,
		`
		insert into "runtime_profile" ("name", "memory_gb", "time_hours", "cpus", "partitions")
		values ($1, $2, $3, $4, $5)
		returning "id"
		`,
		spec.Name, spec.MemoryGB, spec.TimeHours, spec.CPUs, spec.Partitions,
	).Scan(&id); err != nil {
		pgerr := new(pgconn.PgError)
		if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
			return 0, kpgerr.Conflict{Table: "runtime_profile", Identity: spec.Name}
		}
		return 0, err
	}
	return id, nil
}

func (p *pgProfile) Get(ctx context.Context, ids []int) (map[int]domain.RuntimeProfile, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "name", "memory_gb", "time_hours", "cpus", "partitions"
		from "runtime_profile" where "id" = ANY($1)
		`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := map[int]domain.RuntimeProfile{}
	for rows.Next() {
		var prof domain.RuntimeProfile
		if err := rows.Scan(
			&prof.Id, &prof.Name, &prof.MemoryGB, &prof.TimeHours,
			&prof.CPUs, &prof.Partitions,
		); err != nil {
			return nil, err
		}
		profiles[prof.Id] = prof
	}
	return profiles, rows.Err()
}

func (p *pgProfile) List(ctx context.Context) ([]domain.RuntimeProfile, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "name", "memory_gb", "time_hours", "cpus", "partitions"
		from "runtime_profile" order by "id"
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []domain.RuntimeProfile{}
	for rows.Next() {
		var prof domain.RuntimeProfile
		if err := rows.Scan(
			&prof.Id, &prof.Name, &prof.MemoryGB, &prof.TimeHours,
			&prof.CPUs, &prof.Partitions,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, prof)
	}
	return profiles, rows.Err()
}
