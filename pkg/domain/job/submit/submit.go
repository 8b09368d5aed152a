// Package submit implements two-phase job submission.
//
// Phase 1 registers the job and its artifact, synchronously: the caller gets
// ids back right away. Phase 2 hands the job to SLURM in a detached unit of
// work; until it attaches an execution, the job stays registered, and the
// sweep loop eventually abandons jobs stuck there.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poselab/dispatchd/pkg/domain"
	jdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	"github.com/poselab/dispatchd/pkg/domain/job/script"
	pdb "github.com/poselab/dispatchd/pkg/domain/profile/db"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
)

var ErrInvalid = errors.New("invalid submission")

// Request is one train-or-predict submission.
type Request struct {
	Kind domain.JobKind
	Mode domain.ArtifactMode

	// display name. Generated when empty.
	Name string

	ProfileId int

	// opaque serialized configuration, written to a file for the job.
	Config string

	// folder the prediction belongs to. Predict only.
	FolderId int

	// folders training reads from. Train only.
	InputFolderIds []int
}

func (r Request) validate() error {
	if r.Kind != domain.Train && r.Kind != domain.Predict {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, r.Kind)
	}
	if r.Mode != domain.ModeCom && r.Mode != domain.ModeDannce {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, r.Mode)
	}
	switch r.Kind {
	case domain.Train:
		if len(r.InputFolderIds) == 0 {
			return fmt.Errorf("%w: train needs at least one input folder", ErrInvalid)
		}
	case domain.Predict:
		if r.FolderId == 0 {
			return fmt.Errorf("%w: predict needs a folder", ErrInvalid)
		}
	}
	return nil
}

// Storage names the directories the submission writes into or points
// SLURM at.
type Storage struct {
	ConfigsDir string
	LogsDir    string
	WorkDir    string

	// container image running the dannce toolchain.
	Image string
}

// Detach runs phase 2 outside the caller's request. The production detach
// is a goroutine; tests run it inline.
type Detach func(task func(ctx context.Context))

// Goroutine detaches tasks with their own deadline, independent of the
// request that spawned them.
func Goroutine(timeout time.Duration) Detach {
	return func(task func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			task(ctx)
		}()
	}
}

type Interface interface {
	// Submit runs phase 1 and schedules phase 2.
	//
	// Returns
	//
	// - Registered: ids of the new job and its artifact
	//
	// - error: ErrInvalid on a malformed request or unusable profile,
	// ErrMissing when the profile does not exist, ErrConflict when the name
	// is taken.
	Submit(ctx context.Context, req Request) (jdb.Registered, error)
}

type service struct {
	jobs     jdb.Interface
	profiles pdb.Interface
	gateway  slurm.Interface
	storage  Storage
	detach   Detach
	newId    func() string
	logger   *log.Logger
}

type Option func(*service)

func WithDetach(detach Detach) Option {
	return func(s *service) { s.detach = detach }
}

func WithIdGenerator(newId func() string) Option {
	return func(s *service) { s.newId = newId }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *service) { s.logger = logger }
}

func New(
	jobs jdb.Interface,
	profiles pdb.Interface,
	gateway slurm.Interface,
	storage Storage,
	options ...Option,
) Interface {
	s := &service{
		jobs:     jobs,
		profiles: profiles,
		gateway:  gateway,
		storage:  storage,
		detach:   Goroutine(5 * time.Minute),
		newId:    uuid.NewString,
		logger:   log.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *service) Submit(ctx context.Context, req Request) (jdb.Registered, error) {
	if err := req.validate(); err != nil {
		return jdb.Registered{}, err
	}

	profiles, err := s.profiles.Get(ctx, []int{req.ProfileId})
	if err != nil {
		return jdb.Registered{}, err
	}
	profile, ok := profiles[req.ProfileId]
	if !ok {
		return jdb.Registered{}, fmt.Errorf(
			"%w: profile %d", domain.ErrMissing, req.ProfileId,
		)
	}
	if err := profile.Validate(); err != nil {
		return jdb.Registered{}, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	jobId := s.newId()
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", strings.ToLower(string(req.Kind)), jobId[:8])
	}

	registered, err := s.jobs.Register(ctx, jdb.NewJob{
		Id:        jobId,
		Kind:      req.Kind,
		Name:      name,
		ProfileId: req.ProfileId,
		Config:    req.Config,
		Artifact: jdb.NewArtifact{
			Name:     name,
			Mode:     req.Mode,
			Path:     name,
			FolderId: req.FolderId,
		},
		InputFolderIds: req.InputFolderIds,
	})
	if err != nil {
		return jdb.Registered{}, err
	}

	s.detach(func(ctx context.Context) {
		if err := s.dispatch(ctx, registered.JobId, name, req, profile); err != nil {
			s.logger.Printf(
				"job %s: dispatch failed, left registered: %s", registered.JobId, err,
			)
		}
	})

	return registered, nil
}

// dispatch is phase 2. A failed config file is left behind: it is keyed by
// job id and harmless.
func (s *service) dispatch(
	ctx context.Context,
	jobId string,
	name string,
	req Request,
	profile domain.RuntimeProfile,
) error {
	configPath := filepath.Join(s.storage.ConfigsDir, jobId+".yaml")
	if err := os.WriteFile(configPath, []byte(req.Config), 0o644); err != nil {
		return err
	}

	text, err := script.Build(req.Kind, req.Mode, profile, script.Param{
		JobName:    name,
		ConfigPath: configPath,
		Workdir:    s.storage.WorkDir,
		LogDir:     s.storage.LogsDir,
		Image:      s.storage.Image,
	})
	if err != nil {
		return err
	}

	slurmId, err := s.gateway.Submit(ctx, text, s.storage.WorkDir)
	if err != nil {
		return err
	}

	logPath := domain.LogTemplate(filepath.Join(s.storage.LogsDir, "%j.out"))
	if err := s.jobs.AttachExecution(ctx, jobId, slurmId, logPath); err != nil {
		return fmt.Errorf("submitted as slurm job %d, but: %w", slurmId, err)
	}
	return nil
}
