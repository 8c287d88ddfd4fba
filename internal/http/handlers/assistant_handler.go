// Conversation HTTP handlers.
//
// This file exposes REST endpoints for the planning conversation:
//   - POST /trips/{id}/message    (send a user message, get the assistant turn)
//   - GET  /trips/{id}/messages   (list paginated conversation messages)
//   - GET  /trips/{id}/guidance   (current workflow stage hint)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (AssistantService)
//   - surface the apply outcome of the assistant's proposed actions
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/services"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/utils"
)

//
// DTOs
//

// PostTripMessageRequest is the JSON payload for sending a user message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer. The service also enforces
// a maximum rune count, which can be configured in AssistantService.
type PostTripMessageRequest struct {
	// Content is the user message. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Monta um roteiro de 3 dias em Roma"`
}

// PostTripMessageResponse is the JSON envelope for one assistant turn.
type PostTripMessageResponse struct {
	// Message is the persisted assistant reply.
	Message *domain.TripMessage `json:"message"`
	// ClientOperationID identifies the apply operation this turn produced.
	ClientOperationID string `json:"client_operation_id"`
	// Version is the itinerary version the turn produced, when actions were applied.
	Version *int `json:"version,omitempty"`
	// TripState is the workflow state after the turn, when actions were applied.
	TripState string `json:"trip_state,omitempty"`
}

// ListTripMessagesResponse contains a page of conversation messages and
// pagination metadata.
type ListTripMessagesResponse struct {
	Messages   []domain.TripMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// GuidanceResponse reports the trip's workflow state and its stage hint.
type GuidanceResponse struct {
	TripState string `json:"trip_state"`
	Guidance  string `json:"guidance"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxMessageRunes inspects the concrete AssistantService for a
// configured message-length limit. If unavailable, it returns a conservative
// fallback.
func discoverMaxMessageRunes(asstSvc AssistantService) int {
	const fallback = 4000
	if as, ok := asstSvc.(*services.AssistantService); ok {
		if as.MaxMessageRunes > 0 {
			return as.MaxMessageRunes
		}
	}
	return fallback
}

//
// Handlers
//

// PostTripMessage godoc
// @ID          postTripMessage
// @Summary     Send a message and get the assistant turn
// @Description Appends a user message to the trip conversation, applies the assistant's proposed
// @Description itinerary actions transactionally, and returns the assistant reply.
// @Tags        Conversation
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the trip"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"              format(uuid)
// @Param       body       body    handlers.PostTripMessageRequest  true  "User message payload"
//
// @Success     200  {object}  handlers.PostTripMessageResponse  "Assistant turn"
// @Failure     400  {object}  handlers.ErrorResponse            "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse            "Trip not found"
// @Failure     500  {object}  handlers.ErrorResponse            "Internal error"
// @Router      /trips/{id}/message [post]
func (h *Handlers) PostTripMessage(c *gin.Context) {
	ctx := c.Request.Context()
	tripID := c.Param("id")

	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	var req PostTripMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := discoverMaxMessageRunes(h.asstSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	turn, err := h.asstSvc.Converse(ctx, userID(c), tripID, content)
	if err != nil {
		switch err {
		case services.ErrTripNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	resp := PostTripMessageResponse{
		Message:           turn.Message,
		ClientOperationID: turn.ClientOperationID,
	}
	if turn.Applied != nil {
		v := turn.Applied.Version
		resp.Version = &v
		resp.TripState = string(turn.Applied.TripState)
	}
	ok(c, http.StatusOK, resp)
}

// ListTripMessages godoc
// @ID          listTripMessages
// @Summary     List messages in a trip conversation
// @Description Returns a paginated list of conversation messages for the given trip.
// @Tags        Conversation
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path   string  true  "Trip ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTripMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/messages [get]
func (h *Handlers) ListTripMessages(c *gin.Context) {
	ctx := c.Request.Context()
	tripID := c.Param("id")

	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.asstSvc.ListPage(ctx, userID(c), tripID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrTripNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListTripMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetTripGuidance godoc
// @ID          getTripGuidance
// @Summary     Get the workflow stage hint
// @Description Returns the trip's current workflow state and the guidance text for that stage.
// @Tags        Conversation
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Trip ID (UUID)"         format(uuid)
//
// @Success     200  {object} handlers.GuidanceResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Trip not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /trips/{id}/guidance [get]
func (h *Handlers) GetTripGuidance(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := uuid.Parse(tripID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trip id must be a UUID")
		return
	}

	state, guidance, err := h.asstSvc.Guidance(c.Request.Context(), userID(c), tripID)
	if err != nil {
		if err == services.ErrTripNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trip not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, GuidanceResponse{TripState: string(state), Guidance: guidance})
}
