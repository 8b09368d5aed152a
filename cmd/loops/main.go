package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/poselab/dispatchd/cmd/loops/recurring"
	configs "github.com/poselab/dispatchd/pkg/configs/backend"
	cfg_hook "github.com/poselab/dispatchd/pkg/configs/hook"
	"github.com/poselab/dispatchd/pkg/domain"
	"github.com/poselab/dispatchd/pkg/domain/dispatch"
	"github.com/poselab/dispatchd/pkg/utils/args"
	"github.com/poselab/dispatchd/pkg/utils/filewatch"
	"github.com/poselab/dispatchd/pkg/utils/try"
)

func main() {
	logger := byLogger(log.Default(), WithTimestamp())
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("DISPATCHD_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("DISPATCHD_SCHEMA"), "schema repository path",
	)
	phooks := flag.String(
		"hooks", os.Getenv("DISPATCHD_HOOKS"), "path to hook config file",
	)
	//-- which loop type to run
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type: reconcile|sweep")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	// parse command line flags
	flag.Parse()

	{
		// watch config & hooks
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig, *phooks)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(logger)

	backend := try.To(dispatch.New(
		ctx, conf, dispatch.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(logger)
	defer backend.Close()

	{
		ctx_, ccan := backend.Schema().Database().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	hooks := cfg_hook.Config{}
	if hookPath := *phooks; hookPath != "" {
		hooks = try.To(cfg_hook.Load(hookPath)).OrFatal(logger)
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	manifest := LoopManifest{
		Policy: recurring.UntilError(policy.Value()),
		Hooks:  hooks,
	}

	var err error
	switch loopType.Value() {
	case domain.Reconcile:
		err = StartReconcileLoop(ctx, logger, backend, manifest)
	case domain.Sweep:
		err = StartSweepLoop(ctx, logger, backend, manifest)
	default:
		logger.Fatalf("unknown loop type: %s", loopType.Value())
	}

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	if ctx.Err() != nil {
		logger.Fatal(err)
	}
}
