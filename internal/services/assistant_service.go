// Package services – AssistantService
//
// This file implements AssistantService, the application-level component that
// owns the planning conversation. It validates the user's message, builds the
// assistant envelope from the current workflow state, applies the proposed
// actions through TripService, and persists the user/assistant message pair
// atomically.
//
// Optional enhancement: it also auto-generates a trip title from the first
// user message when the trip still has a default/empty title.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// trip/user identifiers and pagination parameters where applicable.

package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/repo"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/travel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// AssistantService coordinates conversation turns: envelope generation,
// action application, and message persistence.
type AssistantService struct {
	DB    *gorm.DB
	Trips *TripService

	// MaxMessageRunes caps accepted user messages; zero disables the guard.
	MaxMessageRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// NewAssistantService constructs an AssistantService with sane defaults.
func NewAssistantService(db *gorm.DB, trips *TripService) *AssistantService {
	return &AssistantService{
		DB:              db,
		Trips:           trips,
		MaxMessageRunes: 4000,
		TitleLocale:     language.Und,
		TitleMaxLen:     60,
	}
}

// Turn is the outcome of one conversation turn: the assistant's reply, the
// apply result for the proposed actions (nil when the envelope proposed
// none), and the persisted assistant message row.
type Turn struct {
	Reply             string
	ClientOperationID string
	Applied           *ApplyResult
	Message           *domain.TripMessage
}

// Converse validates the message, verifies trip ownership, builds the
// assistant envelope, applies its actions, and persists both utterances.
func (s *AssistantService) Converse(ctx context.Context, userID, tripID, message string) (*Turn, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "Converse",
		trace.WithAttributes(
			attribute.String("trip.id", tripID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate the message
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	// Ensure the trip exists and belongs to the user
	trip, err := s.Trips.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	envelope := travel.BuildAssistantEnvelope(message, travel.NormalizeTripState(trip.TripState))

	turn := &Turn{
		Reply:             envelope.AssistantMessage,
		ClientOperationID: envelope.ClientOperationID,
	}

	// Apply the proposed actions through the regular protocol so the turn
	// shares its idempotency and audit guarantees.
	if len(envelope.Actions) > 0 || envelope.TripStateNext != "" {
		applied, err := s.Trips.ApplyActions(ctx, ApplyInput{
			UserID:            userID,
			TripID:            tripID,
			ClientOperationID: envelope.ClientOperationID,
			Actions:           envelope.Actions,
			TripStateNext:     envelope.TripStateNext,
		})
		if err != nil {
			return nil, err
		}
		turn.Applied = applied
	}

	// Persist user + assistant (and maybe update title) in one transaction
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateTripMessage(tx, tripID, roleUser, message); err != nil {
			return err
		}
		m, err := repo.CreateTripMessage(tx, tripID, roleAssistant, envelope.AssistantMessage)
		if err != nil {
			return err
		}
		turn.Message = m

		// Auto-title if placeholder
		if s.shouldAutoTitle(trip.Title) {
			gen := s.generateTitleFromMessage(message)
			if gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Trip{}).Where("id = ?", tripID).Update("title", gen).Error; uerr == nil {
					trip.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return turn, nil
}

// ListPage returns paginated conversation messages for a trip.
func (s *AssistantService) ListPage(ctx context.Context, userID, tripID string, page, pageSize int) ([]domain.TripMessage, int64, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("trip.id", tripID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := s.Trips.Get(ctx, userID, tripID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountTripMessages(s.DB.WithContext(ctx), tripID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.TripMessage{}, 0, nil
	}

	items, err := repo.ListTripMessagesPage(s.DB.WithContext(ctx), tripID, offset, pageSize)
	return items, total, err
}

// Guidance returns the workflow stage hint for a trip's current state.
func (s *AssistantService) Guidance(ctx context.Context, userID, tripID string) (travel.TripState, string, error) {
	trip, err := s.Trips.Get(ctx, userID, tripID)
	if err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return "", "", ErrTripNotFound
		}
		return "", "", err
	}
	state := travel.NormalizeTripState(trip.TripState)
	return state, travel.StateGuidance(state), nil
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *AssistantService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTripTitle) || t == strings.ToLower(untitledTripTitle)
}

// generateTitleFromMessage derives a concise title from the first message.
func (s *AssistantService) generateTitleFromMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(message), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *AssistantService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *AssistantService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "lisbon2026").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"i": {}, "we": {}, "my": {}, "our": {}, "want": {}, "like": {}, "plan": {}, "trip": {},
}
