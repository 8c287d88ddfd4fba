package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/repo"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/travel"
)

func newAssistant(t *testing.T) (*AssistantService, *TripService) {
	t.Helper()
	db := newSvcDB(t)
	trips := NewTripService(db)
	return NewAssistantService(db, trips), trips
}

func TestAssistant_Converse_Validation(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()
	trip := createTrip(t, trips, "u1")

	if _, err := svc.Converse(ctx, "u1", trip.ID, "   \n  "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank message: got %v", err)
	}

	svc.MaxMessageRunes = 10
	if _, err := svc.Converse(ctx, "u1", trip.ID, strings.Repeat("x", 11)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("long message: got %v", err)
	}
	// zero disables the cap
	svc.MaxMessageRunes = 0
	if _, err := svc.Converse(ctx, "u1", trip.ID, strings.Repeat("x", 100)); err != nil {
		t.Fatalf("cap disabled: %v", err)
	}

	if _, err := svc.Converse(ctx, "u1", uuid.NewString(), "hi"); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("unknown trip: got %v", err)
	}
	if _, err := svc.Converse(ctx, "intruder", trip.ID, "hi"); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("foreign trip: got %v", err)
	}
}

func TestAssistant_Converse_PersistsTurnAndApplies(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()
	trip := createTrip(t, trips, "u1")

	turn, err := svc.Converse(ctx, "u1", trip.ID, "I love quiet mornings and museums in Rome")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}

	if turn.Reply == "" || turn.ClientOperationID == "" {
		t.Fatalf("turn incomplete: %+v", turn)
	}
	if turn.Message == nil || turn.Message.Role != roleAssistant {
		t.Fatalf("assistant message not persisted: %+v", turn.Message)
	}

	// the envelope always proposes at least a preferences note, so an apply ran
	if turn.Applied == nil || turn.Applied.Version != 1 {
		t.Fatalf("apply result = %+v", turn.Applied)
	}

	// both utterances of the turn are stored, oldest first
	msgs, total, err := svc.ListPage(ctx, "u1", trip.ID, 1, 10)
	if err != nil || total != 2 || len(msgs) != 2 {
		t.Fatalf("ListPage = %d of %d, %v", len(msgs), total, err)
	}
	if msgs[0].Role != roleUser || msgs[1].Role != roleAssistant {
		t.Fatalf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}

	// the turn shares the apply protocol's audit guarantees
	logs, _ := repo.ListActionLogs(ctx, svc.DB, trip.ID, 0)
	if len(logs) == 0 || logs[0].ClientOperationID != turn.ClientOperationID {
		t.Fatalf("audit trail missing envelope op id: %+v", logs)
	}
}

func TestAssistant_Converse_AutoTitle(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()

	// placeholder title gets replaced from the first message
	trip := createTrip(t, trips, "u1")
	if _, err := svc.Converse(ctx, "u1", trip.ID, "I want to plan a trip to Rome and Florence"); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	got, err := trips.Get(ctx, "u1", trip.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title == defaultTripTitle || got.Title == "" {
		t.Fatalf("placeholder title should be replaced, got %q", got.Title)
	}
	// stop words are dropped, remaining words are title cased
	if !strings.Contains(got.Title, "Rome") || strings.Contains(strings.ToLower(got.Title), "want") {
		t.Fatalf("generated title = %q", got.Title)
	}

	// a custom title is never overwritten
	named, err := trips.Create(ctx, "u1", "My honeymoon")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Converse(ctx, "u1", named.ID, "tell me about Rome"); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	got, _ = trips.Get(ctx, "u1", named.ID)
	if got.Title != "My honeymoon" {
		t.Fatalf("custom title must survive, got %q", got.Title)
	}
}

func TestAssistant_Converse_ItineraryIntentAdvancesState(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()
	trip := createTrip(t, trips, "u1")

	turn, err := svc.Converse(ctx, "u1", trip.ID, "build me an itinerary")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if turn.Applied == nil || turn.Applied.TripState != travel.StatePlanning {
		t.Fatalf("itinerary intent should land in PLANNING: %+v", turn.Applied)
	}

	got, _ := trips.Get(ctx, "u1", trip.ID)
	if got.TripState != string(travel.StatePlanning) {
		t.Fatalf("trip row state = %q", got.TripState)
	}
}

func TestAssistant_ListPage_Ownership(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()
	trip := createTrip(t, trips, "u1")

	if _, _, err := svc.ListPage(ctx, "intruder", trip.ID, 1, 10); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("foreign list: got %v", err)
	}

	// empty conversation comes back as an empty page, not an error
	msgs, total, err := svc.ListPage(ctx, "u1", trip.ID, 1, 10)
	if err != nil || total != 0 || len(msgs) != 0 {
		t.Fatalf("empty page = %d of %d, %v", len(msgs), total, err)
	}
}

func TestAssistant_Guidance(t *testing.T) {
	svc, trips := newAssistant(t)
	ctx := context.Background()
	trip := createTrip(t, trips, "u1")

	state, guidance, err := svc.Guidance(ctx, "u1", trip.ID)
	if err != nil {
		t.Fatalf("Guidance: %v", err)
	}
	if state != travel.StateDiscovery || guidance == "" {
		t.Fatalf("guidance = (%q, %q)", state, guidance)
	}

	if _, _, err := svc.Guidance(ctx, "u1", uuid.NewString()); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("unknown trip: got %v", err)
	}
}

func TestAssistant_TitleHelpers(t *testing.T) {
	svc, _ := newAssistant(t)

	if !svc.shouldAutoTitle("") || !svc.shouldAutoTitle("new trip") || !svc.shouldAutoTitle("Untitled") {
		t.Fatal("placeholders must be eligible for auto-titling")
	}
	if svc.shouldAutoTitle("Rome 2026") {
		t.Fatal("real titles must not be eligible")
	}

	got := svc.generateTitleFromMessage("I want to plan a trip to Rome in October")
	if got == "" || strings.Contains(strings.ToLower(got), "want") {
		t.Fatalf("generated title = %q", got)
	}

	svc.TitleMaxLen = 4
	if clipped := svc.clipTitle("abcdefg"); clipped != "abcd" {
		t.Fatalf("clipTitle = %q", clipped)
	}
}
