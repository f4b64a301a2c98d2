package ingest

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/pkg/apperror"
)

// Handler exposes the ingestion queue over HTTP
type Handler struct {
	repo *Repository
}

// NewHandler creates a new ingest handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

var knownSources = []items.Source{
	items.SourceProjects,
	items.SourceMail,
	items.SourceDocs,
	items.SourceDrive,
}

var knownEventTypes = []EventType{
	EventTaskUpserted,
	EventMessageUpserted,
	EventDocumentUpserted,
	EventFileUpserted,
	EventFileDeleted,
	EventContactUpserted,
}

type enqueueRequest struct {
	Source     items.Source    `json:"source"`
	EventType  EventType       `json:"eventType"`
	ExternalID string          `json:"externalId"`
	Payload    json.RawMessage `json:"payload"`
}

// Enqueue accepts one source event and queues it for processing.
func (h *Handler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if !slices.Contains(knownSources, req.Source) {
		return apperror.NewBadRequest("unknown source: " + string(req.Source))
	}
	if !slices.Contains(knownEventTypes, req.EventType) {
		return apperror.NewBadRequest("unknown event type: " + string(req.EventType))
	}
	if req.ExternalID == "" {
		return apperror.NewBadRequest("externalId is required")
	}

	item, err := h.repo.Enqueue(c.Request().Context(), req.Source, req.EventType, req.ExternalID, req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, item)
}

// Stats returns queue depth per source and status.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.repo.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

type requeueRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// RequeueDeadLetter puts dead-lettered items back on the queue. An empty id
// list requeues everything.
func (h *Handler) RequeueDeadLetter(c echo.Context) error {
	var req requeueRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	count, err := h.repo.RequeueDeadLetter(c.Request().Context(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"requeued": count})
}

// GetCheckpoint returns the resume cursor for one source.
func (h *Handler) GetCheckpoint(c echo.Context) error {
	source := items.Source(c.Param("source"))
	if !slices.Contains(knownSources, source) {
		return apperror.NewBadRequest("unknown source: " + string(source))
	}

	cp, err := h.repo.GetCheckpoint(c.Request().Context(), source)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cp)
}

// PutCheckpoint stores the resume cursor for one source.
func (h *Handler) PutCheckpoint(c echo.Context) error {
	source := items.Source(c.Param("source"))
	if !slices.Contains(knownSources, source) {
		return apperror.NewBadRequest("unknown source: " + string(source))
	}

	var cp Checkpoint
	if err := c.Bind(&cp); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	cp.Source = source

	saved, err := h.repo.UpsertCheckpoint(c.Request().Context(), &cp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}
