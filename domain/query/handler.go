package query

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/auth"
	"github.com/sitedex/sitedex/pkg/mathutil"
)

// Handler exposes the query API
type Handler struct {
	service *Service
	repo    *Repository
}

// NewHandler creates a new query handler
func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Query returns one page of unified items.
func (h *Handler) Query(c echo.Context) error {
	params, err := parseParams(c)
	if err != nil {
		return err
	}

	page, err := h.service.Query(c.Request().Context(), auth.GetCaller(c), *params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Count returns the filtered total plus column and type metadata.
func (h *Handler) Count(c echo.Context) error {
	params, err := parseParams(c)
	if err != nil {
		return err
	}

	counts, err := h.service.Count(c.Request().Context(), auth.GetCaller(c), *params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

// AutocompleteProjects returns project names matching a prefix.
func (h *Handler) AutocompleteProjects(c echo.Context) error {
	return h.autocomplete(c, h.repo.AutocompleteProjects)
}

// AutocompleteTags returns tags and labels matching a prefix.
func (h *Handler) AutocompleteTags(c echo.Context) error {
	return h.autocomplete(c, h.repo.AutocompleteTags)
}

func (h *Handler) autocomplete(c echo.Context, fetch func(ctx context.Context, prefix string, limit int) ([]string, error)) error {
	prefix := strings.TrimSpace(c.QueryParam("q"))
	if prefix == "" {
		return c.JSON(http.StatusOK, []string{})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = mathutil.ClampLimit(limit, 10, 50)

	values, err := fetch(c.Request().Context(), prefix, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, values)
}

func parseParams(c echo.Context) (*Params, error) {
	params := &Params{
		Search:       strings.TrimSpace(c.QueryParam("q")),
		Tag:          strings.TrimSpace(c.QueryParam("tag")),
		Project:      strings.TrimSpace(c.QueryParam("project")),
		Person:       strings.TrimSpace(c.QueryParam("person")),
		Location:     strings.TrimSpace(c.QueryParam("location")),
		CostCodeFrom: strings.TrimSpace(c.QueryParam("costCodeFrom")),
		CostCodeTo:   strings.TrimSpace(c.QueryParam("costCodeTo")),
		Status:       c.QueryParams()["status"],
		Priority:     c.QueryParams()["priority"],
		SortField:    c.QueryParam("sortField"),
		SortOrder:    c.QueryParam("sortOrder"),
	}

	for _, t := range c.QueryParams()["type"] {
		switch it := items.ItemType(t); it {
		case items.ItemTypeTask, items.ItemTypeMessage, items.ItemTypeDocument, items.ItemTypeFile:
			params.Types = append(params.Types, it)
		default:
			return nil, apperror.NewBadRequest("unknown item type: " + t)
		}
	}

	var err error
	if params.DateFrom, err = parseTime(c.QueryParam("dateFrom")); err != nil {
		return nil, err
	}
	if params.DateTo, err = parseTime(c.QueryParam("dateTo")); err != nil {
		return nil, err
	}
	if params.SizeMin, err = parseInt64(c.QueryParam("sizeMin")); err != nil {
		return nil, err
	}
	if params.SizeMax, err = parseInt64(c.QueryParam("sizeMax")); err != nil {
		return nil, err
	}

	params.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	params.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return params, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Date-only is the common caller shorthand.
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, apperror.NewBadRequest("invalid date: " + s)
		}
	}
	return &t, nil
}

func parseInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, apperror.NewBadRequest("invalid number: " + s)
	}
	return &n, nil
}
