package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	apierr "github.com/poselab/dispatchd/pkg/api/types/errors"
	apijobs "github.com/poselab/dispatchd/pkg/api/types/jobs"
	"github.com/poselab/dispatchd/pkg/domain"
	jdb "github.com/poselab/dispatchd/pkg/domain/job/db"
	"github.com/poselab/dispatchd/pkg/domain/job/submit"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
	"github.com/poselab/dispatchd/pkg/utils"
)

func SubmitTrainHandler(service submit.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if strings.ToLower(req.Header.Get("content-type")) != "application/json" {
			return apierr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		body := new(apijobs.TrainRequest)
		if err := json.NewDecoder(req.Body).Decode(body); err != nil {
			return apierr.BadRequest("can not understand the requested json", err)
		}

		mode, err := domain.AsArtifactMode(body.Mode)
		if err != nil {
			return apierr.BadRequest("unknown mode", err)
		}

		registered, err := service.Submit(req.Context(), submit.Request{
			Kind:           domain.Train,
			Mode:           mode,
			Name:           body.Name,
			ProfileId:      body.ProfileId,
			Config:         body.Config,
			InputFolderIds: body.InputFolderIds,
		})
		if err != nil {
			return submitError(err)
		}

		return c.JSON(http.StatusCreated, apijobs.Registered{
			JobId: registered.JobId, ArtifactId: registered.ArtifactId,
		})
	}
}

func SubmitPredictHandler(service submit.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if strings.ToLower(req.Header.Get("content-type")) != "application/json" {
			return apierr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		body := new(apijobs.PredictRequest)
		if err := json.NewDecoder(req.Body).Decode(body); err != nil {
			return apierr.BadRequest("can not understand the requested json", err)
		}

		mode, err := domain.AsArtifactMode(body.Mode)
		if err != nil {
			return apierr.BadRequest("unknown mode", err)
		}

		registered, err := service.Submit(req.Context(), submit.Request{
			Kind:      domain.Predict,
			Mode:      mode,
			Name:      body.Name,
			ProfileId: body.ProfileId,
			Config:    body.Config,
			FolderId:  body.FolderId,
		})
		if err != nil {
			return submitError(err)
		}

		return c.JSON(http.StatusCreated, apijobs.Registered{
			JobId: registered.JobId, ArtifactId: registered.ArtifactId,
		})
	}
}

func submitError(err error) error {
	switch {
	case errors.Is(err, submit.ErrInvalid):
		return apierr.BadRequest("invalid submission", err)
	case errors.Is(err, domain.ErrMissing):
		return apierr.BadRequest("referenced resource does not exist", err)
	case errors.Is(err, domain.ErrConflict):
		return apierr.Conflict("name is already taken", apierr.WithError(err))
	default:
		return apierr.InternalServerError(err)
	}
}

func FindJobHandler(dbjob jdb.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		query := domain.JobFindQuery{}
		for _, v := range queryValues(c, "kind") {
			kind, err := domain.AsJobKind(v)
			if err != nil {
				return apierr.BadRequest("unknown kind", err)
			}
			query.Kind = append(query.Kind, kind)
		}
		for _, v := range queryValues(c, "status") {
			status, err := domain.AsSlurmStatus(v)
			if err != nil {
				return apierr.BadRequest("unknown status", err)
			}
			query.Status = append(query.Status, status)
		}
		for _, v := range queryValues(c, "lifecycle") {
			lifecycle, err := domain.AsJobLifecycle(v)
			if err != nil {
				return apierr.BadRequest("unknown lifecycle", err)
			}
			query.Lifecycle = append(query.Lifecycle, lifecycle)
		}
		if since := c.QueryParam("since"); since != "" {
			ts, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return apierr.BadRequest("since should be a RFC3339 timestamp", err)
			}
			query.Since = &ts
		}

		jobIds, err := dbjob.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		jobs, err := dbjob.Get(ctx, jobIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		details := []apijobs.Detail{}
		for _, jobId := range jobIds {
			if job, ok := jobs[jobId]; ok {
				details = append(details, apijobs.ComposeDetail(job))
			}
		}
		return c.JSON(http.StatusOK, details)
	}
}

func GetJobHandler(dbjob jdb.Interface, jobIdParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		jobId := c.Param(jobIdParam)

		jobs, err := dbjob.Get(ctx, []string{jobId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		job, ok := jobs[jobId]
		if !ok {
			return apierr.NotFound()
		}
		return c.JSON(http.StatusOK, apijobs.ComposeDetail(job))
	}
}

// GetJobSlurmHandler exposes the raw scontrol view of a submitted job.
func GetJobSlurmHandler(dbjob jdb.Interface, gateway slurm.Interface, jobIdParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		jobId := c.Param(jobIdParam)

		jobs, err := dbjob.Get(ctx, []string{jobId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		job, ok := jobs[jobId]
		if !ok {
			return apierr.NotFound()
		}
		if job.Execution == nil {
			return apierr.NewErrorMessage(
				http.StatusNotFound, "job is not submitted to slurm",
			)
		}

		detail, err := gateway.Show(ctx, job.Execution.SlurmId)
		if err != nil {
			return apierr.ServiceUnavailable("slurm did not answer. try again later.", err)
		}
		return c.JSON(http.StatusOK, apijobs.SlurmDetail{
			SlurmId:  job.Execution.SlurmId,
			JobState: detail.JobState,
			StdOut:   detail.StdOut,
		})
	}
}

func queryValues(c echo.Context, name string) []string {
	values := []string{}
	for _, chunk := range c.QueryParams()[name] {
		values = append(values, strings.Split(chunk, ",")...)
	}
	return utils.Filter(values, func(v string) bool { return v != "" })
}
