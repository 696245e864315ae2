package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/payment"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type CheckoutRequest struct {
	RequestID   string  `json:"requestId"`
	UserID      string  `json:"userId"`
	RepairerID  string  `json:"repairerId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body CheckoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	res, err := h.svc.CreateCheckout(c.Request().Context(), actor, service.CheckoutInput{
		RequestID:   body.RequestID,
		UserID:      body.UserID,
		RepairerID:  body.RepairerID,
		Amount:      body.Amount,
		Description: body.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Webhook needs the raw body for signature checks, so it never binds.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable body"))
	}
	err = h.svc.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if errors.Is(err, payment.ErrInvalidSignature) {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_signature", "webhook signature verification failed"))
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
