package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/poselab/dispatchd/pkg/api/types/errors"
	apiprofiles "github.com/poselab/dispatchd/pkg/api/types/profiles"
	"github.com/poselab/dispatchd/pkg/domain"
	pdb "github.com/poselab/dispatchd/pkg/domain/profile/db"
	"github.com/poselab/dispatchd/pkg/utils"
)

func RegisterProfileHandler(dbprofile pdb.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if strings.ToLower(req.Header.Get("content-type")) != "application/json" {
			return apierr.BadRequest(
				"unexpected content type. it should be application/json", nil,
			)
		}

		body := new(apiprofiles.RegisterRequest)
		if err := json.NewDecoder(req.Body).Decode(body); err != nil {
			return apierr.BadRequest("can not understand the requested json", err)
		}

		if body.Name == "" {
			return apierr.BadRequest("name is required", nil)
		}

		spec := domain.RuntimeProfile{
			Name:       body.Name,
			MemoryGB:   body.MemoryGB,
			TimeHours:  body.TimeHours,
			CPUs:       body.CPUs,
			Partitions: body.Partitions,
		}
		if err := spec.Validate(); err != nil {
			return apierr.BadRequest("profile is not satisfiable", err)
		}

		profileId, err := dbprofile.Register(req.Context(), pdb.NewProfile{
			Name:       body.Name,
			MemoryGB:   body.MemoryGB,
			TimeHours:  body.TimeHours,
			CPUs:       body.CPUs,
			Partitions: body.Partitions,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return apierr.Conflict("profile name is already taken", apierr.WithError(err))
			}
			return apierr.InternalServerError(err)
		}

		spec.Id = profileId
		return c.JSON(http.StatusCreated, apiprofiles.ComposeDetail(spec))
	}
}

func FindProfileHandler(dbprofile pdb.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		profiles, err := dbprofile.List(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(profiles, apiprofiles.ComposeDetail))
	}
}

func GetProfileHandler(dbprofile pdb.Interface, profileIdParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		profileId, err := strconv.Atoi(c.Param(profileIdParam))
		if err != nil {
			return apierr.BadRequest("profile id should be an integer", err)
		}

		profiles, err := dbprofile.Get(c.Request().Context(), []int{profileId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		profile, ok := profiles[profileId]
		if !ok {
			return apierr.NotFound()
		}
		return c.JSON(http.StatusOK, apiprofiles.ComposeDetail(profile))
	}
}
