package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/geo"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

// MapsClient is the subset of the TomTom client the handlers use.
type MapsClient interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
	Route(ctx context.Context, from, to model.GeoPoint) (*geo.Route, error)
}

type GeoHandler struct {
	maps      MapsClient
	requests  service.RequestService
	repairers service.RepairerService
}

func NewGeoHandler(maps MapsClient, requests service.RequestService, repairers service.RepairerService) *GeoHandler {
	return &GeoHandler{maps: maps, requests: requests, repairers: repairers}
}

func (h *GeoHandler) Reverse(c echo.Context) error {
	if h.maps == nil {
		return mapsError(c, geo.ErrMapsNotConfigured)
	}
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil || !(model.GeoPoint{Latitude: lat, Longitude: lon}).Valid() {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid lat/lon"))
	}
	addr, err := h.maps.ReverseGeocode(c.Request().Context(), lat, lon)
	if err != nil {
		return mapsError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]*string{"address": strPtrOrNil(addr)})
}

// RequestRoute draws the drive from the repairer to the request. The
// repairer is the assigned one, or the caller when nobody is assigned yet.
func (h *GeoHandler) RequestRoute(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	if h.maps == nil {
		return mapsError(c, geo.ErrMapsNotConfigured)
	}
	ctx := c.Request().Context()
	req, err := h.requests.Get(ctx, actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	repairerID := req.RepairerID
	if repairerID == "" {
		repairerID = actor.UID
	}
	p, err := h.repairers.Get(ctx, repairerID)
	if err != nil {
		return writeError(c, err)
	}
	if p.Location == nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "repairer has no location"))
	}
	route, err := h.maps.Route(ctx, *p.Location, req.Location)
	if err != nil {
		return mapsError(c, err)
	}
	return c.JSON(http.StatusOK, route)
}

func mapsError(c echo.Context, err error) error {
	if errors.Is(err, geo.ErrMapsNotConfigured) {
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("maps_unavailable", "maps are not configured"))
	}
	return writeError(c, errors.Join(service.ErrExternalService, err))
}
