package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poselab/dispatchd/cmd/dispatchd/handlers"
	"github.com/poselab/dispatchd/cmd/loops/hook"
	"github.com/poselab/dispatchd/cmd/loops/tasks/reconcile"
	apijobs "github.com/poselab/dispatchd/pkg/api/types/jobs"
	configs "github.com/poselab/dispatchd/pkg/configs/backend"
	cfg_hook "github.com/poselab/dispatchd/pkg/configs/hook"
	"github.com/poselab/dispatchd/pkg/domain/dispatch"
	"github.com/poselab/dispatchd/pkg/domain/job/artifact"
	"github.com/poselab/dispatchd/pkg/domain/job/submit"
	"github.com/poselab/dispatchd/pkg/utils/echoutil"
	"github.com/poselab/dispatchd/pkg/utils/filewatch"
	kstrings "github.com/poselab/dispatchd/pkg/utils/strings"
)

func main() {

	pconfig := flag.String(
		"config", os.Getenv("DISPATCHD_CONFIG"), "path to config file",
	)
	phooks := flag.String(
		"hooks", os.Getenv("DISPATCHD_HOOKS"), "path to lifecycle hooks config file",
	)
	schemaRepo := flag.String("schema-repo", os.Getenv("DISPATCHD_SCHEMA"), "schema repository path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	conf, err := configs.LoadBackendConfig(*pconfig)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	hooksConf := cfg_hook.Config{}
	if *phooks != "" {
		h, err := cfg_hook.Load(*phooks)
		if err != nil {
			log.Fatalf("can not read hooks configration: %s", err)
		}
		hooksConf = h

		wctx, wcancel, err := filewatch.UntilModifyContext(ctx, *phooks)
		if err != nil {
			log.Fatalf("can not watch hooks configration: %s", err)
		}
		defer wcancel()
		context.AfterFunc(wctx, func() {
			log.Println("hooks config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by hooks config update: %s", err)
			}
		})
	}

	backend, err := dispatch.New(ctx, conf, dispatch.WithSchemaRepository(*schemaRepo))
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer backend.Close()
	{
		ctx_, ccan := backend.Schema().Database().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	submitService := submit.New(
		backend.Job().Database(),
		backend.Profile().Database(),
		backend.Slurm(),
		submit.Storage{
			ConfigsDir: conf.Storage().Configs(),
			LogsDir:    conf.Storage().Logs(),
			WorkDir:    conf.Storage().Workdir(),
			Image:      conf.Storage().Image(),
		},
	)

	reconcileTask := reconcile.Task(
		log.Default(),
		backend.Job().Database(),
		backend.Slurm(),
		artifact.Resolver{
			WeightsRoot:     conf.Storage().Weights(),
			PredictionsRoot: conf.Storage().Predictions(),
		},
		conf.Lifecycle().Grace(),
		hook.Build[apijobs.StatusChange, struct{}](
			hooksConf.Lifecycle,
			func(a, b struct{}) struct{} { return a },
		),
	)
	runReconcile := func(ctx context.Context) (reconcile.Pass, error) {
		pass, _, err := reconcileTask(ctx, reconcile.Seed())
		return pass, err
	}

	api, err := root("/api")
	if err != nil {
		log.Fatalf("api root /api is invalid url or path: %s", err)
	}

	{
		e.POST(api("jobs/train"), handlers.SubmitTrainHandler(submitService))
		e.POST(api("jobs/predict"), handlers.SubmitPredictHandler(submitService))

		e.GET(api("jobs"), handlers.FindJobHandler(backend.Job().Database()))
		e.GET(api("jobs/:jobId/"), handlers.GetJobHandler(backend.Job().Database(), "jobId"))
		e.GET(
			api("jobs/:jobId/slurm"),
			handlers.GetJobSlurmHandler(backend.Job().Database(), backend.Slurm(), "jobId"),
		)

		e.POST(api("reconciliation"), handlers.ReconcileHandler(runReconcile))
	}

	{
		e.GET(api("profiles"), handlers.FindProfileHandler(backend.Profile().Database()))
		e.POST(api("profiles"), handlers.RegisterProfileHandler(backend.Profile().Database()))
		e.GET(
			api("profiles/:profileId/"),
			handlers.GetProfileHandler(backend.Profile().Database(), "profileId"),
		)
	}

	{
		e.GET(api("folders"), handlers.FindFolderHandler(backend.Folder().Database()))
		e.POST(api("folders"), handlers.RegisterFolderHandler(backend.Folder().Database()))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		if err := e.Start(fmt.Sprintf(":%d", conf.Port())); err != nil && err != http.ErrServerClosed {
			ch <- err
		}
	}()

	exit := 0
	select {
	case <-ctx.Done(): // wait
		if err := ctx.Err(); err != nil {
			e.Logger.Infof("context has been done: %s, cause: %s", err, context.Cause(ctx))
			exit = 1
		}
	case err := <-ch:
		if err != nil {
			e.Logger.Error("server stops with error:", err)
			exit = 1
		}
	}

	{
		e.Logger.Info("shutting down...")
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()

		if err := e.Shutdown(qctx); err != nil {
			e.Logger.Fatalf("Shutdown with error. %+v", err)
			os.Exit(1)
		}
		os.Exit(exit)
	}
}

// create api URL factory
//
// args:
//   - root: api root
//
// return:
// - func: it receive relative path from root, and returns full-path of URL.
func root(r string) (func(...string) string, error) {
	base := ""
	{
		b, err := url.Parse(r)
		if err != nil {
			return nil, err
		}
		base = b.Path
	}

	return func(s ...string) string {
		parts := make([]string, len(s)+1)
		parts[0] = base
		copy(parts[1:], s)
		p := path.Join(parts...)
		p = kstrings.TrimPrefixAll(p, "/")

		return kstrings.SuppySuffix("/"+p, "/")
	}, nil
}
