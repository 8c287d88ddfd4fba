package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

func newVersion(tripID, opID string, number int, snapshot string, createdBy string) *domain.ItineraryVersion {
	return &domain.ItineraryVersion{
		ID:                uuid.NewString(),
		TripID:            tripID,
		VersionNumber:     number,
		BaseVersion:       number - 1,
		ClientOperationID: opID,
		Snapshot:          datatypes.JSON([]byte(snapshot)),
		CreatedBy:         createdBy,
	}
}

func TestInsertVersion_AndGetByClientOp(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	v := newVersion("trip-1", "op-1", 1, `{"version":1}`, "u1")
	if err := InsertVersion(ctx, db, v); err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}

	got, err := GetVersionByClientOp(ctx, db, "trip-1", "op-1", "u1")
	if err != nil {
		t.Fatalf("GetVersionByClientOp: %v", err)
	}
	if got.VersionNumber != 1 || string(got.Snapshot) != `{"version":1}` {
		t.Fatalf("stored version mismatch: %+v", got)
	}

	// lookup is scoped by creator: another user never sees the row
	if _, err := GetVersionByClientOp(ctx, db, "trip-1", "op-1", "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign lookup must be ErrNotFound, got %v", err)
	}
	if _, err := GetVersionByClientOp(ctx, db, "trip-1", "op-unknown", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown op must be ErrNotFound, got %v", err)
	}
}

func TestInsertVersion_DuplicateClientOp(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	if err := InsertVersion(ctx, db, newVersion("trip-1", "op-1", 1, `{}`, "u1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// same (trip_id, client_operation_id), different version number
	err := InsertVersion(ctx, db, newVersion("trip-1", "op-1", 2, `{}`, "u1"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate client op must be ErrDuplicate, got %v", err)
	}

	// same op id on another trip is fine
	if err := InsertVersion(ctx, db, newVersion("trip-2", "op-1", 1, `{}`, "u1")); err != nil {
		t.Fatalf("same op on other trip: %v", err)
	}
}

func TestInsertVersion_DuplicateVersionNumber(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	if err := InsertVersion(ctx, db, newVersion("trip-1", "op-1", 1, `{}`, "u1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := InsertVersion(ctx, db, newVersion("trip-1", "op-2", 1, `{}`, "u1"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate version number must be ErrDuplicate, got %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	if _, err := LatestVersion(ctx, db, "trip-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no versions must be ErrNotFound, got %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := InsertVersion(ctx, db, newVersion("trip-1", uuid.NewString(), i, `{}`, "u1")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	v, err := LatestVersion(ctx, db, "trip-1")
	if err != nil || v.VersionNumber != 3 {
		t.Fatalf("LatestVersion = %+v, %v; want number 3", v, err)
	}
}

func TestCountAndListVersionsPage(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := InsertVersion(ctx, db, newVersion("trip-1", uuid.NewString(), i, `{}`, "u1")); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	total, err := CountVersions(ctx, db, "trip-1")
	if err != nil || total != 5 {
		t.Fatalf("CountVersions = %d, %v; want 5", total, err)
	}

	page, err := ListVersionsPage(ctx, db, "trip-1", 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListVersionsPage = %d rows, %v", len(page), err)
	}
	// newest first
	if page[0].VersionNumber != 5 || page[1].VersionNumber != 4 {
		t.Fatalf("page order wrong: %d, %d", page[0].VersionNumber, page[1].VersionNumber)
	}
}
