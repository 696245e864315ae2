package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

type RepairerHandler struct {
	profiles  service.RepairerService
	directory service.DirectoryService
}

func NewRepairerHandler(profiles service.RepairerService, directory service.DirectoryService) *RepairerHandler {
	return &RepairerHandler{profiles: profiles, directory: directory}
}

type UpsertRepairerRequest struct {
	DisplayName string          `json:"displayName"`
	Bio         string          `json:"bio"`
	PhoneNumber string          `json:"phoneNumber"`
	Skills      []string        `json:"skills"`
	Categories  []string        `json:"categories"`
	ServiceArea float64         `json:"serviceArea"`
	Location    *model.GeoPoint `json:"location"`
}

func (h *RepairerHandler) Nearby(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "lat and lon are required"))
	}
	radius := 0.0
	if r := c.QueryParam("radius"); r != "" {
		parsed, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid radius"))
		}
		radius = parsed
	}
	list, err := h.directory.FindNearby(c.Request().Context(), model.GeoPoint{Latitude: lat, Longitude: lon}, radius, c.QueryParam("category"))
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]RepairerResponse, 0, len(list))
	for i := range list {
		r := toRepairerResponse(&list[i].Profile)
		d := list[i].DistanceKm
		r.DistanceKm = &d
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"repairers": resp})
}

func (h *RepairerHandler) Get(c echo.Context) error {
	p, err := h.profiles.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRepairerResponse(p))
}

func (h *RepairerHandler) GetMe(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.profiles.Get(c.Request().Context(), actor.UID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRepairerResponse(p))
}

func (h *RepairerHandler) UpsertMe(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body UpsertRepairerRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.profiles.Upsert(c.Request().Context(), actor, service.RepairerProfileInput{
		DisplayName: body.DisplayName,
		Bio:         body.Bio,
		PhoneNumber: body.PhoneNumber,
		Skills:      body.Skills,
		Categories:  body.Categories,
		ServiceArea: body.ServiceArea,
		Location:    body.Location,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRepairerResponse(p))
}

func (h *RepairerHandler) AvailableJobs(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.directory.AvailableRequests(c.Request().Context(), actor.UID)
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]NearbyRequestResponse, 0, len(list))
	for i := range list {
		resp = append(resp, NearbyRequestResponse{
			RepairRequestResponse: toRequestResponse(&list[i].Request),
			DistanceKm:            list[i].DistanceKm,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": resp})
}
