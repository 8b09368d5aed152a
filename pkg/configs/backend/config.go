package backend

import "time"

type BackendConfig struct {
	port      int32
	database  string
	slurm     *SlurmConfig
	storage   *StorageConfig
	lifecycle *LifecycleConfig
}

func (c *BackendConfig) Port() int32 {
	return c.port
}

// Connection string for database.
func (c *BackendConfig) Database() string {
	return c.database
}

func (c *BackendConfig) Slurm() *SlurmConfig {
	return c.slurm
}

func (c *BackendConfig) Storage() *StorageConfig {
	return c.storage
}

func (c *BackendConfig) Lifecycle() *LifecycleConfig {
	return c.lifecycle
}

// Configuration for the SLURM command line tools.
//
// to get `SlurmConfig` instance, use `BackendConfigMarshall.TrySeal()` .
type SlurmConfig struct {
	sbatch   string
	sacct    string
	scontrol string
	timeout  time.Duration
}

func (s *SlurmConfig) Sbatch() string {
	return s.sbatch
}

func (s *SlurmConfig) Sacct() string {
	return s.sacct
}

func (s *SlurmConfig) Scontrol() string {
	return s.scontrol
}

// Deadline for each scheduler CLI invocation. default = 15s
func (s *SlurmConfig) Timeout() time.Duration {
	return s.timeout
}

// Directories the orchestrator reads and writes.
type StorageConfig struct {
	configs     string
	logs        string
	workdir     string
	weights     string
	predictions string
	image       string
}

// Where per-job config files are written.
func (s *StorageConfig) Configs() string {
	return s.configs
}

// Where SLURM writes job logs.
func (s *StorageConfig) Logs() string {
	return s.logs
}

// Working directory jobs run in.
func (s *StorageConfig) Workdir() string {
	return s.workdir
}

// Root of training checkpoint directories.
func (s *StorageConfig) Weights() string {
	return s.weights
}

// Root of prediction output directories.
func (s *StorageConfig) Predictions() string {
	return s.predictions
}

// Container image holding the dannce toolchain.
func (s *StorageConfig) Image() string {
	return s.image
}

type LifecycleConfig struct {
	grace      time.Duration
	sweepAfter time.Duration
}

// How long an unreported slurm id is tolerated before the job is marked
// LOST_TO_SLURM. default = 60s
func (l *LifecycleConfig) Grace() time.Duration {
	return l.grace
}

// How long a job may stay registered before the sweep loop abandons it.
// default = 10m
func (l *LifecycleConfig) SweepAfter() time.Duration {
	return l.sweepAfter
}
