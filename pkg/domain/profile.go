package domain

import (
	"errors"
	"fmt"
)

// RuntimeProfile is a named resource envelope used to parameterize a SLURM
// submission. Profiles are registered by operators and read-only for the
// job lifecycle.
type RuntimeProfile struct {
	Id   int
	Name string

	// requested memory, in GB.
	MemoryGB int

	// walltime limit, in hours.
	TimeHours int

	// cpus per task.
	CPUs int

	// candidate partitions, in preference order.
	Partitions []string
}

var ErrInvalidProfile = errors.New("invalid runtime profile")

// Validate checks the envelope is usable for a submission.
//
// Script building treats this as a precondition: a profile which fails here
// never reaches sbatch.
func (p RuntimeProfile) Validate() error {
	if p.MemoryGB <= 0 {
		return fmt.Errorf("%w: memory %dGB", ErrInvalidProfile, p.MemoryGB)
	}
	if p.TimeHours <= 0 {
		return fmt.Errorf("%w: time %dh", ErrInvalidProfile, p.TimeHours)
	}
	if p.CPUs <= 0 {
		return fmt.Errorf("%w: cpus %d", ErrInvalidProfile, p.CPUs)
	}
	if len(p.Partitions) == 0 {
		return fmt.Errorf("%w: no partitions", ErrInvalidProfile)
	}
	for _, part := range p.Partitions {
		if part == "" {
			return fmt.Errorf("%w: empty partition name", ErrInvalidProfile)
		}
	}
	return nil
}
