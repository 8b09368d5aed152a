package backend

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type BackendConfigMarshall struct {
	Port      int32                    `yaml:"port"`
	Database  string                   `yaml:"database"`
	Slurm     *SlurmConfigMarshall     `yaml:"slurm,omitempty"`
	Storage   *StorageConfigMarshall   `yaml:"storage"`
	Lifecycle *LifecycleConfigMarshall `yaml:"lifecycle,omitempty"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	slurm := b.Slurm
	if slurm == nil {
		slurm = &SlurmConfigMarshall{}
	}
	lifecycle := b.Lifecycle
	if lifecycle == nil {
		lifecycle = &LifecycleConfigMarshall{}
	}
	return &BackendConfig{
		port:      required(b.Port, path+".port"),
		database:  required(b.Database, path+".database"),
		slurm:     slurm.trySeal(path + ".slurm"),
		storage:   nonnil(b.Storage, path+".storage").trySeal(path + ".storage"),
		lifecycle: lifecycle.trySeal(path + ".lifecycle"),
	}
}

// This type is marshalling value and mutable.
// Consider to use immutable version, `SlurmConfig`.
type SlurmConfigMarshall struct {
	Sbatch   string `yaml:"sbatch,omitempty"`
	Sacct    string `yaml:"sacct,omitempty"`
	Scontrol string `yaml:"scontrol,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

func (s *SlurmConfigMarshall) trySeal(path string) *SlurmConfig {
	return &SlurmConfig{
		sbatch:   defaulted(s.Sbatch, "sbatch"),
		sacct:    defaulted(s.Sacct, "sacct"),
		scontrol: defaulted(s.Scontrol, "scontrol"),
		timeout:  duration(defaulted(s.Timeout, "15s"), path+".timeout"),
	}
}

type StorageConfigMarshall struct {
	Configs     string `yaml:"configs"`
	Logs        string `yaml:"logs"`
	Workdir     string `yaml:"workdir"`
	Weights     string `yaml:"weights"`
	Predictions string `yaml:"predictions"`
	Image       string `yaml:"image"`
}

func (s *StorageConfigMarshall) trySeal(path string) *StorageConfig {
	return &StorageConfig{
		configs:     required(s.Configs, path+".configs"),
		logs:        required(s.Logs, path+".logs"),
		workdir:     required(s.Workdir, path+".workdir"),
		weights:     required(s.Weights, path+".weights"),
		predictions: required(s.Predictions, path+".predictions"),
		image:       required(s.Image, path+".image"),
	}
}

type LifecycleConfigMarshall struct {
	Grace      string `yaml:"grace,omitempty"`
	SweepAfter string `yaml:"sweepAfter,omitempty"`
}

func (l *LifecycleConfigMarshall) trySeal(path string) *LifecycleConfig {
	return &LifecycleConfig{
		grace:      duration(defaulted(l.Grace, "60s"), path+".grace"),
		sweepAfter: duration(defaulted(l.SweepAfter, "10m"), path+".sweepAfter"),
	}
}

func duration(v string, path string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	return d
}

func defaulted(v string, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
