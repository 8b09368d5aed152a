package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/poselab/dispatchd/pkg/api/types/errors"
	apifolders "github.com/poselab/dispatchd/pkg/api/types/folders"
	"github.com/poselab/dispatchd/pkg/domain"
	fdb "github.com/poselab/dispatchd/pkg/domain/folder/db"
	"github.com/poselab/dispatchd/pkg/utils"
)

func RegisterFolderHandler(dbfolder fdb.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if strings.ToLower(req.Header.Get("content-type")) != "application/json" {
			return apierr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		body := new(apifolders.RegisterRequest)
		if err := json.NewDecoder(req.Body).Decode(body); err != nil {
			return apierr.BadRequest("can not understand the requested json", err)
		}
		if body.Name == "" || body.Path == "" {
			return apierr.BadRequest("name and path are required", nil)
		}

		folderId, err := dbfolder.Register(req.Context(), fdb.NewFolder{
			Name: body.Name, Path: body.Path,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return apierr.Conflict("folder name or path is already taken", apierr.WithError(err))
			}
			return apierr.InternalServerError(err)
		}

		folders, err := dbfolder.Get(req.Context(), []int{folderId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		folder, ok := folders[folderId]
		if !ok {
			return apierr.InternalServerError(errors.New("registered folder has gone"))
		}
		return c.JSON(http.StatusCreated, apifolders.ComposeDetail(folder))
	}
}

func FindFolderHandler(dbfolder fdb.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		folders, err := dbfolder.List(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(folders, apifolders.ComposeDetail))
	}
}
