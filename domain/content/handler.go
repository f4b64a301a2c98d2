package content

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/apperror"
)

// Handler exposes the payload push endpoint and content statistics
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a new content handler
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// StorePayload accepts the raw payload bytes for a content hash from a
// source adapter.
func (h *Handler) StorePayload(c echo.Context) error {
	hash := c.Param("hash")
	if hash == "" {
		return apperror.NewBadRequest("content hash required")
	}

	req := c.Request()
	err := h.service.StorePayload(req.Context(), hash, req.Body,
		req.ContentLength, req.Header.Get(echo.HeaderContentType))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRecord returns one content record.
func (h *Handler) GetRecord(c echo.Context) error {
	record, err := h.repo.Get(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Stats returns record counts per status pair.
func (h *Handler) Stats(c echo.Context) error {
	counts, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}
