// Itinerary HTTP handlers.
//
// This file exposes REST endpoints for the itinerary apply protocol and its
// derived views:
//   - POST   /trips/{id}/actions/apply  (apply a batch of edit actions)
//   - GET    /trips/{id}/snapshot       (latest itinerary snapshot)
//   - GET    /trips/{id}/versions       (version history, paginated)
//   - GET    /trips/{id}/logs           (audit trail)
//   - DELETE /trips/{id}/logs           (purge audit rows by version)
//
// Idempotency:
// Every apply must carry a clientOperationId. A repeated id replays the
// recorded result byte for byte and sets `Idempotency-Replayed: true`.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/services"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/travel"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/utils"
)

//
// DTOs
//

// ApplyActionsRequest is the JSON payload for one apply submission.
type ApplyActionsRequest struct {
	// ClientOperationID identifies the operation across retries (1–128 chars).
	ClientOperationID string `json:"clientOperationId" binding:"required,min=1,max=128" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
	// Actions is the ordered batch of edit actions; may be empty when only a
	// state transition is requested.
	Actions []travel.Action `json:"actions"`
	// TripStateNext optionally requests a workflow transition after the batch.
	TripStateNext string `json:"tripStateNext,omitempty" example:"PLANNING"`
	// Summary optionally annotates the resulting version.
	Summary *string `json:"summary,omitempty"`
}

// ApplyActionsResponse reports the outcome of an apply.
type ApplyActionsResponse struct {
	TripID     string          `json:"tripId"`
	Version    int             `json:"version"`
	TripState  string          `json:"tripState"`
	Idempotent bool            `json:"idempotent"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

// ListVersionsResponse wraps a page of itinerary versions.
type ListVersionsResponse struct {
	Versions   []domain.ItineraryVersion `json:"versions"`
	Pagination Pagination                `json:"pagination"`
}

// ListActionLogsResponse wraps the audit-log rows for a trip.
type ListActionLogsResponse struct {
	Logs  []domain.TripActionLog `json:"logs"`
	Count int                    `json:"count"`
}

// DeleteActionLogsRequest names the versions whose audit rows are purged.
type DeleteActionLogsRequest struct {
	VersionIDs []string `json:"versionIds" binding:"required,min=1"`
}

//
// Handlers
//

// ApplyTripActions godoc
// @ID          applyTripActions
// @Summary     Apply itinerary edit actions
// @Description Applies an ordered batch of edit actions to the trip's itinerary inside one transaction,
// @Description producing a new immutable version. Resubmitting the same clientOperationId replays the
// @Description recorded result without changing state.
// @Tags        Itinerary
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
// @Param       body       body    handlers.ApplyActionsRequest  true  "Action batch"
//
// @Success     200  {object} handlers.ApplyActionsResponse
// @Header      200  {string} Idempotency-Replayed "true when the response is a replay"
// @Failure     400  {object} handlers.ErrorResponse "Bad request or rejected batch"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     409  {object} handlers.ErrorResponse "Operation already in flight"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/actions/apply [post]
func (h *Handlers) ApplyTripActions(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	var req ApplyActionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clientOperationId required")
		return
	}

	res, err := h.tripSvc.ApplyActions(c.Request.Context(), services.ApplyInput{
		UserID:            userID(c),
		TripID:            tripID,
		ClientOperationID: strings.TrimSpace(req.ClientOperationID),
		Actions:           req.Actions,
		TripStateNext:     travel.TripState(req.TripStateNext),
		Summary:           req.Summary,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTripNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
		case errors.Is(err, services.ErrMissingOperationID):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clientOperationId required")
		case errors.Is(err, services.ErrOperationConflict):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, travel.ErrInvalidTransition):
			fail(c, http.StatusBadRequest, ErrCodeInvalidTransition, err.Error())
		case errors.Is(err, travel.ErrReorderMismatch):
			fail(c, http.StatusBadRequest, ErrCodeReorderMismatch, err.Error())
		case errors.Is(err, travel.ErrUnsupportedAction):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeApplyFailed, err.Error())
		}
		return
	}

	if res.Idempotent {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, ApplyActionsResponse{
		TripID:     tripID,
		Version:    res.Version,
		TripState:  string(res.TripState),
		Idempotent: res.Idempotent,
		Snapshot:   res.Snapshot,
	})
}

// GetTripSnapshot godoc
// @ID          getTripSnapshot
// @Summary     Get the latest itinerary snapshot
// @Description Returns the trip's latest snapshot. For trips with version history the stored bytes are
// @Description returned verbatim; a fresh trip yields a version 0 snapshot built from current rows.
// @Tags        Itinerary
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
//
// @Success     200  {object} travel.TripSnapshot
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/snapshot [get]
func (h *Handlers) GetTripSnapshot(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	raw, err := h.tripSvc.Snapshot(c.Request.Context(), userID(c), tripID)
	if err != nil {
		if errors.Is(err, services.ErrTripNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Write the stored bytes directly so replays stay byte-identical.
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// ListTripVersions godoc
// @ID          listTripVersions
// @Summary     List itinerary versions (paginated)
// @Description Returns the trip's immutable version history, newest first.
// @Tags        Itinerary
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
// @Param       page       query   int     false "Page number"            minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListVersionsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/versions [get]
func (h *Handlers) ListTripVersions(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.tripSvc.ListVersionsPage(c.Request.Context(), userID(c), tripID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrTripNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListVersionsResponse{
		Versions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListTripActionLogs godoc
// @ID          listTripActionLogs
// @Summary     List the trip's audit trail
// @Description Returns the most recent audit-log rows, one per applied action, newest first.
// @Tags        Itinerary
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
// @Param       limit      query   int     false "Maximum rows returned"  minimum(1) maximum(500) default(100)
//
// @Success     200  {object} handlers.ListActionLogsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/logs [get]
func (h *Handlers) ListTripActionLogs(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), 100)
	if limit > 500 {
		limit = 500
	}

	logs, err := h.tripSvc.ActionLogs(c.Request.Context(), userID(c), tripID, limit)
	if err != nil {
		if errors.Is(err, services.ErrTripNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListActionLogsResponse{Logs: logs, Count: len(logs)})
}

// DeleteTripActionLogs godoc
// @ID          deleteTripActionLogs
// @Summary     Purge audit rows by version
// @Description Deletes the audit-log rows belonging to the named versions. Version rows and their
// @Description snapshots are never touched.
// @Tags        Itinerary
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
// @Param       body       body    handlers.DeleteActionLogsRequest  true  "Version ids to purge"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/logs [delete]
func (h *Handlers) DeleteTripActionLogs(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	var req DeleteActionLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VersionIDs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "versionIds required")
		return
	}

	if err := h.tripSvc.DeleteActionsByVersion(c.Request.Context(), userID(c), tripID, req.VersionIDs); err != nil {
		if errors.Is(err, services.ErrTripNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	noContent(c)
}
