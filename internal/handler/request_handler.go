package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

type RequestHandler struct {
	svc service.RequestService
}

func NewRequestHandler(svc service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type CreateRequestRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	ImageURLs   []string       `json:"imageUrls"`
	Location    model.GeoPoint `json:"location"`
	RepairerID  string         `json:"repairerId"`
}

type CreateRequestResponse struct {
	Request   RepairRequestResponse     `json:"request"`
	Diagnosis *DiagnosticReportResponse `json:"diagnosis"`
}

type CompleteRequestRequest struct {
	ImageURL string `json:"imageUrl"`
	Note     string `json:"note"`
}

type SetPriceRequest struct {
	Price float64 `json:"price"`
}

// Create submits the request and tries to diagnose it right away. A failed
// diagnosis does not fail the submission; the client can retry it later.
func (h *RequestHandler) Create(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body CreateRequestRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	ctx := c.Request().Context()
	req, err := h.svc.Submit(ctx, actor, service.SubmitRequestInput{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		ImageURLs:   body.ImageURLs,
		Location:    body.Location,
		RepairerID:  body.RepairerID,
	})
	if err != nil {
		return writeError(c, err)
	}

	resp := CreateRequestResponse{}
	rep, err := h.svc.Diagnose(ctx, actor, req.ID, false)
	if err != nil {
		log.Printf("[diag] rid=%s req=%s stage=initial_diagnosis_skipped err=%v", reqctx.RID(ctx), req.ID, err)
	} else {
		d := toReportResponse(rep)
		resp.Diagnosis = &d
		if fresh, err := h.svc.Get(ctx, actor, req.ID); err == nil {
			req = fresh
		}
	}
	resp.Request = toRequestResponse(req)
	return c.JSON(http.StatusCreated, resp)
}

func (h *RequestHandler) Get(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) ListMine(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListMine(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": toRequestList(list)})
}

func (h *RequestHandler) ListAssigned(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListAssigned(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": toRequestList(list)})
}

func (h *RequestHandler) GetDiagnosis(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	rep, err := h.svc.Report(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReportResponse(rep))
}

func (h *RequestHandler) Diagnose(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	regenerate, _ := strconv.ParseBool(c.QueryParam("regenerate"))
	rep, err := h.svc.Diagnose(c.Request().Context(), actor, c.Param("id"), regenerate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReportResponse(rep))
}

func (h *RequestHandler) Accept(c echo.Context) error {
	return h.transition(c, h.svc.Accept)
}

func (h *RequestHandler) Start(c echo.Context) error {
	return h.transition(c, h.svc.Start)
}

func (h *RequestHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

type transitionFunc func(ctx context.Context, actor service.Actor, id string) (*model.RepairRequest, error)

func (h *RequestHandler) transition(c echo.Context, fn transitionFunc) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := fn(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) Complete(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body CompleteRequestRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	res, err := h.svc.Complete(c.Request().Context(), actor, c.Param("id"), service.CompletionInput{
		ImageURL: body.ImageURL,
		Note:     body.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toCompletionResponse(res))
}

func (h *RequestHandler) SetPrice(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body SetPriceRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	req, err := h.svc.SetPrice(c.Request().Context(), actor, c.Param("id"), body.Price)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toRequestResponse(req))
}

func (h *RequestHandler) Verifications(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.Verifications(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	resp := make([]VerificationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toVerificationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"verifications": resp})
}
