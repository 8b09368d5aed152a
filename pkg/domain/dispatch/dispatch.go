package dispatch

import (
	"context"

	bconf "github.com/poselab/dispatchd/pkg/configs/backend"
	dispatchdb "github.com/poselab/dispatchd/pkg/domain/dispatch/db"
	"github.com/poselab/dispatchd/pkg/domain/dispatch/db/postgres"
	"github.com/poselab/dispatchd/pkg/domain/folder"
	"github.com/poselab/dispatchd/pkg/domain/job"
	"github.com/poselab/dispatchd/pkg/domain/profile"
	"github.com/poselab/dispatchd/pkg/domain/schema"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
	slurmcli "github.com/poselab/dispatchd/pkg/domain/slurm/cli"
)

type Dispatch interface {
	Config() *bconf.BackendConfig

	Job() job.Interface
	Profile() profile.Interface
	Folder() folder.Interface

	Slurm() slurm.Interface
	Schema() schema.Interface

	Close() error
}

type dispatch struct {
	config *bconf.BackendConfig
	db     dispatchdb.Database

	job     job.Interface
	profile profile.Interface
	folder  folder.Interface

	slurm  slurm.Interface
	schema schema.Interface
}

func New(
	ctx context.Context,
	config *bconf.BackendConfig,
	options ...Option,
) (Dispatch, error) {
	opt := &_options{}
	for _, o := range options {
		o(opt)
	}

	pg, err := postgres.New(ctx, config.Database(), opt.pg...)
	if err != nil {
		return nil, err
	}

	gateway := opt.gateway
	if gateway == nil {
		gateway = slurmcli.New(slurmcli.Config{
			Sbatch:   config.Slurm().Sbatch(),
			Sacct:    config.Slurm().Sacct(),
			Scontrol: config.Slurm().Scontrol(),
			Timeout:  config.Slurm().Timeout(),
		})
	}

	return &dispatch{
		config: config,
		db:     pg,

		job:     job.New(pg.Job()),
		profile: profile.New(pg.Profile()),
		folder:  folder.New(pg.Folder()),

		slurm:  gateway,
		schema: schema.New(pg.Schema()),
	}, nil
}

type Option func(*_options)

type _options struct {
	pg      []postgres.Option
	gateway slurm.Interface
}

func WithSchemaRepository(repository string) Option {
	return func(o *_options) {
		o.pg = append(o.pg, postgres.WithSchemaRepository(repository))
	}
}

// WithSlurm swaps the scheduler gateway. For tests.
func WithSlurm(gateway slurm.Interface) Option {
	return func(o *_options) {
		o.gateway = gateway
	}
}

func (d *dispatch) Config() *bconf.BackendConfig {
	return d.config
}

func (d *dispatch) Job() job.Interface {
	return d.job
}

func (d *dispatch) Profile() profile.Interface {
	return d.profile
}

func (d *dispatch) Folder() folder.Interface {
	return d.folder
}

func (d *dispatch) Slurm() slurm.Interface {
	return d.slurm
}

func (d *dispatch) Schema() schema.Interface {
	return d.schema
}

func (d *dispatch) Close() error {
	return d.db.Close()
}
