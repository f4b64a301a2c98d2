package people

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/mathutil"
)

// Handler exposes person lookups and the bulk relink trigger
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a new people handler
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// GetPerson returns one unified person by id.
func (h *Handler) GetPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid person id")
	}

	person, err := h.repo.GetPerson(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, person)
}

// Autocomplete returns persons matching a name or email prefix.
func (h *Handler) Autocomplete(c echo.Context) error {
	prefix := strings.TrimSpace(c.QueryParam("q"))
	if prefix == "" {
		return c.JSON(http.StatusOK, []UnifiedPerson{})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = mathutil.ClampLimit(limit, 10, 50)

	persons, err := h.repo.Autocomplete(c.Request().Context(), prefix, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, persons)
}

// RerunLinking starts a bulk re-resolution and returns the run record.
func (h *Handler) RerunLinking(c echo.Context) error {
	run, err := h.service.RerunLinking(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, run)
}
