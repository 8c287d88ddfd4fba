// Trip HTTP handlers.
//
// This file exposes REST endpoints for trip resources:
//   - POST   /trips               (create)
//   - GET    /trips               (list, paginated, ETag support)
//   - PUT    /trips/{id}/title    (rename)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/repo"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/services"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/travel"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/utils"
)

//
// Service contracts (context-aware)
//

// TripService defines trip lifecycle and itinerary operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TripService interface {
	// Create starts a new trip for userID with an optional title.
	Create(ctx context.Context, userID, title string) (*domain.Trip, error)
	// ListPage returns a page of trips for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Trip, int64, error)
	// UpdateTitle renames a trip that belongs to userID.
	UpdateTitle(ctx context.Context, userID, tripID, title string) error
	// ApplyActions runs one transactional apply operation.
	ApplyActions(ctx context.Context, in services.ApplyInput) (*services.ApplyResult, error)
	// Snapshot returns the latest snapshot bytes for a trip.
	Snapshot(ctx context.Context, userID, tripID string) (json.RawMessage, error)
	// ListVersionsPage returns a page of version history, newest first.
	ListVersionsPage(ctx context.Context, userID, tripID string, page, pageSize int) ([]domain.ItineraryVersion, int64, error)
	// ActionLogs returns the most recent audit-log rows for a trip.
	ActionLogs(ctx context.Context, userID, tripID string, limit int) ([]domain.TripActionLog, error)
	// DeleteActionsByVersion purges audit-log rows for the given version ids.
	DeleteActionsByVersion(ctx context.Context, userID, tripID string, versionIDs []string) error
}

// AssistantService defines conversation operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AssistantService interface {
	// Converse runs one conversation turn against a trip.
	Converse(ctx context.Context, userID, tripID, message string) (*services.Turn, error)
	// ListPage returns a page of conversation messages and the total count.
	ListPage(ctx context.Context, userID, tripID string, page, pageSize int) ([]domain.TripMessage, int64, error)
	// Guidance returns the workflow stage hint for the trip's current state.
	Guidance(ctx context.Context, userID, tripID string) (travel.TripState, string, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for trips, itineraries, and the planning
// conversation. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	tripSvc TripService
	asstSvc AssistantService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(tripSvc TripService, asstSvc AssistantService) *Handlers {
	return &Handlers{tripSvc: tripSvc, asstSvc: asstSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateTripRequest is the JSON payload for creating a trip.
type CreateTripRequest struct {
	// Title optionally sets the trip title; a default is used when empty.
	Title string `json:"title" example:"Rome in five days"`
}

// UpdateTripTitleRequest is the JSON payload for updating a trip title.
type UpdateTripTitleRequest struct {
	// Title is the new trip name (1–256 chars).
	Title string `json:"title" binding:"required,min=1,max=256" example:"Rome + Florence, October"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListTripsResponse wraps a page of trips and pagination information.
type ListTripsResponse struct {
	Trips      []domain.Trip `json:"trips"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateTrip godoc
// @ID          createTrip
// @Summary     Create a new trip
// @Description Creates a trip for the current user in the DISCOVERY state and returns the trip resource.
// @Tags        Trips
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateTripRequest  true  "Create trip payload"
//
// @Success     201  {object}  domain.Trip
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /trips [post]
func (h *Handlers) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(req.Title)

	trip, err := h.tripSvc.Create(c.Request.Context(), userID(c), title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, trip)
}

// ListTrips godoc
// @ID          listTrips
// @Summary     List trips (paginated)
// @Description Returns a page of the user's trips. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Trips
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTripsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips [get]
func (h *Handlers) ListTrips(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.tripSvc.(*services.TripService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.TripsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"trips:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.tripSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	resp := ListTripsResponse{
		Trips: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// UpdateTripTitle godoc
// @ID          updateTripTitle
// @Summary     Rename a trip
// @Description Updates the title of a trip owned by the current user.
// @Tags        Trips
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"         example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"                format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       body       body    handlers.UpdateTripTitleRequest  true  "New title"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/title [put]
func (h *Handlers) UpdateTripTitle(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	var req UpdateTripTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1–256 chars)")
		return
	}

	if err := h.tripSvc.UpdateTitle(c.Request.Context(), userID(c), tripID, req.Title); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
		return
	}

	noContent(c)
}
