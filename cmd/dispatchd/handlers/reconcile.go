package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/poselab/dispatchd/cmd/loops/tasks/reconcile"
	apierr "github.com/poselab/dispatchd/pkg/api/types/errors"
	apijobs "github.com/poselab/dispatchd/pkg/api/types/jobs"
)

// ReconcileHandler runs a single reconciliation pass on demand,
// without waiting for the next tick of the background loop.
func ReconcileHandler(run func(context.Context) (reconcile.Pass, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		pass, err := run(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apijobs.ReconciliationResult{
			At:      pass.At,
			Checked: pass.Checked,
			Changed: pass.Changed,
			Lost:    pass.Lost,
			Stale:   pass.Stale,
		})
	}
}
