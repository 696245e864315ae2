package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/media"
)

// ImageStore persists an uploaded image and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, kind, owner, contentType string, data []byte) (string, error)
}

type UploadHandler struct {
	store ImageStore
}

func NewUploadHandler(store ImageStore) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) Upload(c echo.Context) error {
	actor, ok := requireActor(c)
	if !ok {
		return unauthorized(c)
	}
	if h.store == nil {
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("uploads_unavailable", "uploads are not configured"))
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "file is required"))
	}
	if fh.Size > media.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse("too_large", "image is larger than 8MB"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable file"))
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, media.MaxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable file"))
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	kind := c.FormValue("kind")
	if kind != "completion" {
		kind = "requests"
	}

	url, err := h.store.Upload(c.Request().Context(), kind, actor.UID, contentType, data)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "only jpeg, png, webp or heic images"))
	case errors.Is(err, media.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse("too_large", "image is larger than 8MB"))
	case errors.Is(err, media.ErrNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("uploads_unavailable", "uploads are not configured"))
	case err != nil:
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": url})
}
