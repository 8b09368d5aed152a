package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	dbInterface "github.com/poselab/dispatchd/pkg/domain/dispatch/db"
	kfolder "github.com/poselab/dispatchd/pkg/domain/folder/db"
	kpgfolder "github.com/poselab/dispatchd/pkg/domain/folder/db/postgres"
	kjob "github.com/poselab/dispatchd/pkg/domain/job/db"
	kpgjob "github.com/poselab/dispatchd/pkg/domain/job/db/postgres"
	kprofile "github.com/poselab/dispatchd/pkg/domain/profile/db"
	kpgprofile "github.com/poselab/dispatchd/pkg/domain/profile/db/postgres"
	kschema "github.com/poselab/dispatchd/pkg/domain/schema/db"
	kpgschema "github.com/poselab/dispatchd/pkg/domain/schema/db/postgres"
	xe "github.com/poselab/dispatchd/pkg/errors"
)

type dispatchDBPostgres struct {
	pool    *pgxpool.Pool
	job     kjob.Interface
	profile kprofile.Interface
	folder  kfolder.Interface
	schema  kschema.SchemaInterface
}

type Config struct {
	SchemaRepository string
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.Database, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	c := Config{}
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &dispatchDBPostgres{
		pool:    pool,
		job:     kpgjob.New(p),
		profile: kpgprofile.New(p),
		folder:  kpgfolder.New(p),
		schema:  schema,
	}, nil
}

func (d *dispatchDBPostgres) Job() kjob.Interface {
	return d.job
}

func (d *dispatchDBPostgres) Profile() kprofile.Interface {
	return d.profile
}

func (d *dispatchDBPostgres) Folder() kfolder.Interface {
	return d.folder
}

func (d *dispatchDBPostgres) Schema() kschema.SchemaInterface {
	return d.schema
}

func (d *dispatchDBPostgres) Close() error {
	d.pool.Close()
	return nil
}
