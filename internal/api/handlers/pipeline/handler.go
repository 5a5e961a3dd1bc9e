// Package pipeline exposes the HTTP trigger surface: manual ingestion and
// dispatch runs, event listing, manual event creation and forced cleanup.
// The surrounding application and the scheduler share the same services.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/api/respond"
	"github.com/abhonsle123/ripplefx/internal/config"
	"github.com/abhonsle123/ripplefx/internal/model"
	eventrepo "github.com/abhonsle123/ripplefx/internal/repository/event"
	"github.com/abhonsle123/ripplefx/internal/service/dispatch"
)

const defaultListLimit = 50

type ingestService interface {
	Run(ctx context.Context) model.IngestReport
}

type dispatchService interface {
	Drain(ctx context.Context) (model.DispatchReport, error)
}

type eventRepository interface {
	CreateEvent(ctx context.Context, article model.Article, classification model.ClassificationResult, isPublic bool) (model.Event, error)
	ListRecent(ctx context.Context, limit int) ([]model.Event, error)
	CleanupStale(ctx context.Context, forceRefresh bool, olderThan time.Duration) (int64, error)
}

// Handler handles HTTP requests for the pipeline surface.
type Handler struct {
	ingest    ingestService
	dispatch  dispatchService
	events    eventRepository
	validator *validator.Validate
	cfg       *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(
	ingest ingestService,
	dispatch dispatchService,
	events eventRepository,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{
		ingest:    ingest,
		dispatch:  dispatch,
		events:    events,
		validator: v,
		cfg:       cfg,
	}
}

// RunIngest triggers one ingestion run and returns its report.
func (h *Handler) RunIngest(c *ginext.Context) {
	report := h.ingest.Run(c.Request.Context())
	respond.OK(c.Writer, report)
}

// RunDispatch triggers one dispatch run and returns its report. A concurrent
// run answers 409 so schedule overlaps surface instead of double-sending.
func (h *Handler) RunDispatch(c *ginext.Context) {
	report, err := h.dispatch.Drain(c.Request.Context())
	if err != nil {
		if errors.Is(err, dispatch.ErrDrainInProgress) {
			respond.Fail(c.Writer, http.StatusConflict, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("dispatch run failed")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, report)
}

// ListEvents returns the most recent events for the dashboard.
func (h *Handler) ListEvents(c *ginext.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid limit"))
			return
		}
		limit = parsed
	}

	events, err := h.events.ListRecent(c.Request.Context(), limit)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list events")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, events)
}

// CreateEventRequest represents the JSON body for manual event creation.
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	EventType   string `json:"event_type" validate:"required,oneof=NATURAL_DISASTER GEOPOLITICAL ECONOMIC OTHER"`
	Severity    string `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	SourceURL   string `json:"source_url" validate:"omitempty,url"`
}

// CreateEvent stores a user-authored event. These bypass the severity gate
// and are never touched by retention cleanup.
func (h *Handler) CreateEvent(c *ginext.Context) {
	var req CreateEventRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	article := model.Article{
		Title:       req.Title,
		Description: req.Description,
		SourceURL:   req.SourceURL,
		SourceAPI:   model.SourceUser,
	}
	classification := model.ClassificationResult{
		EventType: model.EventType(req.EventType),
		Severity:  model.Severity(req.Severity),
	}

	event, err := h.events.CreateEvent(c.Request.Context(), article, classification, false)
	if err != nil {
		if errors.Is(err, eventrepo.ErrDuplicateTitle) {
			respond.Fail(c.Writer, http.StatusConflict, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("title", req.Title).Msg("failed to create event")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, event)
}

// CleanupRequest represents the JSON body for the retention cleanup endpoint.
type CleanupRequest struct {
	Force bool `json:"force"`
}

// Cleanup deletes stale public feed events when force is set.
func (h *Handler) Cleanup(c *ginext.Context) {
	var req CleanupRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	deleted, err := h.events.CleanupStale(c.Request.Context(), req.Force, h.cfg.Pipeline.CleanupAge)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to cleanup stale events")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, map[string]int64{"deleted": deleted})
}
