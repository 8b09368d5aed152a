package domain

// domain package contains the Domain Models and Interfaces for the dispatchd application.
//
// `domain/dispatch` package exposes the root object for the application.
// Entrypoints should instantiate the Dispatch object and use it to interact with the domain.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/job.go` contains the `Job` entity.
//
// `domain/ENTITY` directory contains the "physical" representation of the domain entities,
// the RDB or the SLURM cluster.
// For example, `domain/job/db` contains the database expression of the job entity
// described in `domain/job.go`, and `domain/slurm` contains the SLURM CLI expression
// of an execution.
//
// # Entities
//
// Core entities in the domain are:
//
// - `job`: A request to run a train or predict workload on the cluster.
// Jobs are registered first (phase 1, synchronous with the API request),
// then submitted to SLURM in a detached background step (phase 2).
// A registered Job owns exactly one Artifact; once submitted it refers to
// exactly one Execution.
//
// - `execution`: The SLURM-side handle of a Job: the slurm job id, the
// externally-observed status and the templated log path. Executions are
// created once at the end of phase 2, and their status is updated only by
// the reconcile loop in `cmd/loops/tasks/reconcile`.
//
// - `artifact`: The durable output of a Job. Model weights for train jobs,
// prediction data for predict jobs. Artifacts start PENDING and move to
// COMPLETED or FAILED at most once, when the owning Job's execution reaches
// a terminal status.
//
// - `profile`: Named resource envelopes (memory, walltime, cpus, partitions)
// used to parameterize SLURM submissions.
//
// - `folder`: Video folders. They are the input data collections of train jobs
// and the owners of predictions.
//
// - `loop`: Constants for each recurring task. Implementations of the loops are
// in the `cmd/loops/tasks/` directory.
