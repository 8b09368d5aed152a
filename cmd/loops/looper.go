package main

import (
	"context"
	"log"
	"time"

	"github.com/poselab/dispatchd/cmd/loops/hook"
	"github.com/poselab/dispatchd/cmd/loops/recurring"
	"github.com/poselab/dispatchd/cmd/loops/tasks/reconcile"
	"github.com/poselab/dispatchd/cmd/loops/tasks/sweep"
	apijobs "github.com/poselab/dispatchd/pkg/api/types/jobs"
	cfg_hook "github.com/poselab/dispatchd/pkg/configs/hook"
	"github.com/poselab/dispatchd/pkg/domain/dispatch"
	"github.com/poselab/dispatchd/pkg/domain/job/artifact"
	"github.com/poselab/dispatchd/pkg/loop"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it executes a task.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		// func() capture the 'counter' variable
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		// log at the end of the task
		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s\n with value = %#v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		// execute the task specified by the argument
		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Policy for the looping
	Policy recurring.Policy

	// Hooks for the looping
	Hooks cfg_hook.Config
}

func mergeEmptyStruct(a, b struct{}) struct{} {
	return struct{}{}
}

// Start the reconciliation loop: poll SLURM and apply status changes.
//
// Args:
//
// - ctx
//
// - logger : logger for monitoring loop.
//
// - backend : dispatchd cluster client
//
// - manifest
func StartReconcileLoop(
	ctx context.Context,
	logger *log.Logger,
	backend dispatch.Dispatch,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[reconcile loop]"))
	conf := backend.Config()
	_, err := loop.Start(
		ctx, reconcile.Seed(),
		monitor(
			l,
			reconcile.Task(
				l,
				backend.Job().Database(),
				backend.Slurm(),
				artifact.Resolver{
					WeightsRoot:     conf.Storage().Weights(),
					PredictionsRoot: conf.Storage().Predictions(),
				},
				conf.Lifecycle().Grace(),
				hook.Build[apijobs.StatusChange, struct{}](
					manifest.Hooks.Lifecycle, mergeEmptyStruct,
				),
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

// Start the sweep loop: abandon jobs whose submission never completed.
func StartSweepLoop(
	ctx context.Context,
	logger *log.Logger,
	backend dispatch.Dispatch,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[sweep loop]"))
	_, err := loop.Start(
		ctx, sweep.Seed(),
		monitor(
			l,
			sweep.Task(
				l,
				backend.Job().Database(),
				backend.Config().Lifecycle().SweepAfter(),
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}
