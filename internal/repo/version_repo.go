// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the immutable
// ItineraryVersion history, which doubles as the idempotency ledger for the
// apply protocol: the unique (trip_id, client_operation_id) index turns a
// retried submission into a replay.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

// ErrDuplicate indicates that a version row already exists for the given
// (trip_id, client_operation_id) tuple, meaning a truly simultaneous retry
// lost the race. Callers should re-read and serve the committed result.
var ErrDuplicate = errors.New("duplicate")

// GetVersionByClientOp returns the version row recorded for a client
// operation id on a trip, or ErrNotFound. createdBy scopes the lookup to the
// owning user so a foreign trip id can never leak a snapshot.
func GetVersionByClientOp(ctx context.Context, db *gorm.DB, tripID, clientOperationID, createdBy string) (*domain.ItineraryVersion, error) {
	var v domain.ItineraryVersion
	err := db.WithContext(ctx).
		Where("trip_id = ? AND client_operation_id = ? AND created_by = ?", tripID, clientOperationID, createdBy).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LatestVersion returns the newest version row of a trip (highest version
// number), or ErrNotFound when the trip has no versions yet.
func LatestVersion(ctx context.Context, db *gorm.DB, tripID string) (*domain.ItineraryVersion, error) {
	var v domain.ItineraryVersion
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("version_number DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVersion appends an immutable version row. A unique violation on
// (trip_id, client_operation_id) or (trip_id, version_number) is mapped to
// ErrDuplicate so the service can treat it as a concurrency conflict rather
// than a storage failure.
func InsertVersion(ctx context.Context, db *gorm.DB, v *domain.ItineraryVersion) error {
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountVersions returns the total number of version rows for a trip.
func CountVersions(ctx context.Context, db *gorm.DB, tripID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ItineraryVersion{}).
		Where("trip_id = ?", tripID).
		Count(&total).Error
	return total, err
}

// ListVersionsPage returns a page of version rows for a trip, newest first.
func ListVersionsPage(ctx context.Context, db *gorm.DB, tripID string, offset, limit int) ([]domain.ItineraryVersion, error) {
	var out []domain.ItineraryVersion
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("version_number DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
