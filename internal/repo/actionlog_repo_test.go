package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

func newLog(tripID, versionID, actionType string, createdAt time.Time) domain.TripActionLog {
	return domain.TripActionLog{
		ID:                uuid.NewString(),
		TripID:            tripID,
		VersionID:         versionID,
		ClientOperationID: "op-1",
		ActionType:        actionType,
		Payload:           datatypes.JSON([]byte(`{"dayIndex":1}`)),
		Status:            "applied",
		CreatedBy:         "u1",
		CreatedAt:         createdAt,
	}
}

func TestInsertActionLogs_EmptyIsNoop(t *testing.T) {
	db := newDB(t)
	if err := InsertActionLogs(context.Background(), db, nil); err != nil {
		t.Fatalf("InsertActionLogs(nil): %v", err)
	}
}

func TestListActionLogs_NewestFirstWithLimit(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var logs []domain.TripActionLog
	for i := 0; i < 5; i++ {
		logs = append(logs, newLog("trip-1", "ver-1", fmt.Sprintf("ACTION_%d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	if err := InsertActionLogs(ctx, db, logs); err != nil {
		t.Fatalf("InsertActionLogs: %v", err)
	}

	got, err := ListActionLogs(ctx, db, "trip-1", 3)
	if err != nil || len(got) != 3 {
		t.Fatalf("ListActionLogs = %d rows, %v", len(got), err)
	}
	if got[0].ActionType != "ACTION_4" || got[2].ActionType != "ACTION_2" {
		t.Fatalf("not newest first: %q ... %q", got[0].ActionType, got[2].ActionType)
	}

	// limit <= 0 falls back to the default
	all, err := ListActionLogs(ctx, db, "trip-1", 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("default limit = %d rows, %v", len(all), err)
	}
}

func TestDeleteActionLogsByVersion(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := InsertActionLogs(ctx, db, []domain.TripActionLog{
		newLog("trip-1", "ver-1", "CREATE_DAY", now),
		newLog("trip-1", "ver-2", "ADD_ITEM", now),
		newLog("trip-2", "ver-1", "CREATE_DAY", now),
	}); err != nil {
		t.Fatalf("InsertActionLogs: %v", err)
	}

	// empty id list is a no-op
	if err := DeleteActionLogsByVersion(ctx, db, "trip-1", nil); err != nil {
		t.Fatalf("DeleteActionLogsByVersion(nil): %v", err)
	}

	if err := DeleteActionLogsByVersion(ctx, db, "trip-1", []string{"ver-1"}); err != nil {
		t.Fatalf("DeleteActionLogsByVersion: %v", err)
	}

	rest, err := ListActionLogs(ctx, db, "trip-1", 0)
	if err != nil || len(rest) != 1 || rest[0].VersionID != "ver-2" {
		t.Fatalf("trip-1 should keep only ver-2 rows: %+v, %v", rest, err)
	}

	// ver-1 rows of another trip are untouched
	other, err := ListActionLogs(ctx, db, "trip-2", 0)
	if err != nil || len(other) != 1 {
		t.Fatalf("trip-2 rows should survive: %+v, %v", other, err)
	}
}
