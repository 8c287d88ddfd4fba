package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestCreateTrip_AndGet(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trip, err := CreateTrip(ctx, db, "u1", "Rome", "DISCOVERY")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if trip.ID == "" {
		t.Fatal("trip id must be generated")
	}
	if trip.LastVersion != 0 {
		t.Fatalf("fresh trip LastVersion = %d, want 0", trip.LastVersion)
	}
	if string(trip.Preferences) != "{}" {
		t.Fatalf("fresh trip preferences = %s, want {}", trip.Preferences)
	}

	got, err := GetTrip(ctx, db, trip.ID, "u1")
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if got.Title != "Rome" || got.TripState != "DISCOVERY" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestGetTrip_OwnershipScoped(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trip, err := CreateTrip(ctx, db, "owner", "Private", "DISCOVERY")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	if _, err := GetTrip(ctx, db, trip.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user must see ErrNotFound, got %v", err)
	}
	if _, err := GetTrip(ctx, db, "missing-id", "owner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing trip must be ErrNotFound, got %v", err)
	}
}

func TestCountAndListTripsPage(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := CreateTrip(ctx, db, "u1", "Trip", "DISCOVERY"); err != nil {
			t.Fatalf("CreateTrip: %v", err)
		}
	}
	if _, err := CreateTrip(ctx, db, "u2", "Other", "DISCOVERY"); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	total, err := CountTrips(ctx, db, "u1")
	if err != nil || total != 3 {
		t.Fatalf("CountTrips = %d, %v; want 3", total, err)
	}

	page, err := ListTripsPage(ctx, db, "u1", 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListTripsPage(0,2) = %d rows, %v", len(page), err)
	}
	rest, err := ListTripsPage(ctx, db, "u1", 2, 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("ListTripsPage(2,2) = %d rows, %v", len(rest), err)
	}
}

func TestUpdateTripTitle(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trip, err := CreateTrip(ctx, db, "u1", "Old", "DISCOVERY")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	if err := UpdateTripTitle(ctx, db, trip.ID, "u1", "New"); err != nil {
		t.Fatalf("UpdateTripTitle: %v", err)
	}
	got, _ := GetTrip(ctx, db, trip.ID, "u1")
	if got.Title != "New" {
		t.Fatalf("title = %q, want New", got.Title)
	}

	if err := UpdateTripTitle(ctx, db, trip.ID, "intruder", "Stolen"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign rename must be ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateTripMaterialized(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trip, err := CreateTrip(ctx, db, "u1", "Trip", "DISCOVERY")
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	min := int64(50000)
	err = UpdateTripMaterialized(ctx, db, trip.ID, map[string]any{
		"trip_state":       "PLANNING",
		"destination":      "Rome",
		"budget_min_cents": &min,
		"last_version":     1,
	})
	if err != nil {
		t.Fatalf("UpdateTripMaterialized: %v", err)
	}

	got, _ := GetTrip(ctx, db, trip.ID, "u1")
	if got.TripState != "PLANNING" || got.LastVersion != 1 {
		t.Fatalf("denormalized columns not updated: %+v", got)
	}
	if got.Destination == nil || *got.Destination != "Rome" {
		t.Fatalf("destination not updated: %+v", got.Destination)
	}
	if got.BudgetMinCents == nil || *got.BudgetMinCents != 50000 {
		t.Fatalf("budget_min_cents not updated: %+v", got.BudgetMinCents)
	}
}

func TestTripsStats(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	count, maxTS, err := TripsStats(ctx, db, "nobody")
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, maxTS, err)
	}

	if _, err := CreateTrip(ctx, db, "u1", "A", "DISCOVERY"); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if _, err := CreateTrip(ctx, db, "u1", "B", "DISCOVERY"); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	count, maxTS, err = TripsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("TripsStats: %v", err)
	}
	if count != 2 || maxTS == nil || maxTS.IsZero() {
		t.Fatalf("stats = (%d, %v)", count, maxTS)
	}
}
