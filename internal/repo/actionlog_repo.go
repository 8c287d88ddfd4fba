// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the append-only
// TripActionLog audit trail.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

// InsertActionLogs bulk-inserts audit rows for one applied batch. A nil or
// empty slice is a no-op (an empty action batch still produces a version but
// no audit rows).
func InsertActionLogs(ctx context.Context, db *gorm.DB, logs []domain.TripActionLog) error {
	if len(logs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&logs).Error
}

// ListActionLogs returns up to limit audit rows for a trip, newest first.
// Limits <= 0 fall back to 100.
func ListActionLogs(ctx context.Context, db *gorm.DB, tripID string, limit int) ([]domain.TripActionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.TripActionLog
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteActionLogsByVersion removes the audit rows of a trip belonging to
// the given version ids. An empty id list is a no-op.
func DeleteActionLogsByVersion(ctx context.Context, db *gorm.DB, tripID string, versionIDs []string) error {
	if len(versionIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("trip_id = ? AND version_id IN ?", tripID, versionIDs).
		Delete(&domain.TripActionLog{}).Error
}
