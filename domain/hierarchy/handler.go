package hierarchy

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/mathutil"
)

// Handler handles HTTP requests for hierarchy maintenance
type Handler struct {
	svc  *Service
	repo *Repository
}

// NewHandler creates a new hierarchy handler
func NewHandler(svc *Service, repo *Repository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

// RenameLocationRequest is the body for PATCH /locations/:id
type RenameLocationRequest struct {
	Name string `json:"name"`
}

// RenameLocation handles PATCH /api/locations/:id
func (h *Handler) RenameLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid location id")
	}

	var req RenameLocationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Name == "" {
		return apperror.NewBadRequest("name is required")
	}

	if err := h.repo.RenameLocation(c.Request().Context(), id, req.Name); err != nil {
		return err
	}

	node, err := h.repo.GetLocation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": node})
}

// CreateAssociationRequest is the body for POST /associations
type CreateAssociationRequest struct {
	NodeKind   NodeKind   `json:"nodeKind"`
	NodeID     uuid.UUID  `json:"nodeId"`
	TargetKind TargetKind `json:"targetKind"`
	TargetID   uuid.UUID  `json:"targetId"`
}

// CreateAssociation handles POST /api/associations (manual links only)
func (h *Handler) CreateAssociation(c echo.Context) error {
	var req CreateAssociationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	switch req.NodeKind {
	case NodeLocation, NodeCostGroup:
	default:
		return apperror.NewBadRequest("nodeKind must be location or cost_group")
	}
	switch req.TargetKind {
	case TargetTask, TargetConversation, TargetFile:
	default:
		return apperror.NewBadRequest("targetKind must be task, conversation or file")
	}

	assoc, err := h.svc.CreateManualAssociation(c.Request().Context(), req.NodeKind, req.NodeID, TargetRef{Kind: req.TargetKind, ID: req.TargetID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"data": assoc})
}

// DeleteAssociation handles DELETE /api/associations/:id
func (h *Handler) DeleteAssociation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid association id")
	}
	if err := h.repo.DeleteAssociation(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAssociations handles GET /api/associations?targetKind=&targetId=
func (h *Handler) ListAssociations(c echo.Context) error {
	targetID, err := uuid.Parse(c.QueryParam("targetId"))
	if err != nil {
		return apperror.NewBadRequest("invalid targetId")
	}
	kind := TargetKind(c.QueryParam("targetKind"))
	switch kind {
	case TargetTask, TargetConversation, TargetFile:
	default:
		return apperror.NewBadRequest("targetKind must be task, conversation or file")
	}

	assocs, err := h.repo.ListAssociations(c.Request().Context(), TargetRef{Kind: kind, ID: targetID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": assocs})
}

// AutocompleteLocations handles GET /api/autocomplete/locations?q=&limit=
func (h *Handler) AutocompleteLocations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = mathutil.ClampLimit(limit, 10, 50)

	nodes, err := h.repo.AutocompleteLocations(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": nodes})
}

// AutocompleteCostGroups handles GET /api/autocomplete/cost-groups?q=&limit=
func (h *Handler) AutocompleteCostGroups(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = mathutil.ClampLimit(limit, 10, 50)

	nodes, err := h.repo.AutocompleteCostGroups(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": nodes})
}
