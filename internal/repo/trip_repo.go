// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Trip model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a trip is not found (or not owned by the given user), functions
//     return gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

// CreateTrip inserts a new Trip row owned by userID at the given workflow
// state with empty preferences and version 0. The trip ID is a randomly
// generated UUID and CreatedAt is set to UTC.
func CreateTrip(ctx context.Context, db *gorm.DB, userID, title, tripState string) (*domain.Trip, error) {
	t := &domain.Trip{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		TripState:   tripState,
		Preferences: []byte("{}"),
		LastVersion: 0,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTrip fetches a single trip by its ID and owner (userID). If the record
// does not exist or belongs to another user, it returns ErrNotFound. The
// ownership predicate is what scopes every transaction to the calling user.
func GetTrip(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Trip, error) {
	var t domain.Trip
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTrips returns the total number of trips owned by userID.
func CountTrips(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Trip{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListTripsPage returns a paginated slice of trips for userID, ordered by
// creation time descending. Use CountTrips to obtain the total for
// pagination metadata.
func ListTripsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Trip, error) {
	var out []domain.Trip
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateTripTitle updates the title of a trip identified by id and owned by
// userID. If no rows are affected (trip missing or not owned by userID),
// it returns ErrNotFound.
func UpdateTripTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Trip{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTripMaterialized rewrites the trip row's denormalized columns and
// version counter after a successful action batch. The updates map is
// applied verbatim; callers build it from the new draft.
func UpdateTripMaterialized(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Trip{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TripsStats returns aggregate metadata for a user's trips: the total number
// of rows and the maximum UpdatedAt timestamp among them. Used for weak ETag
// generation in the HTTP layer. When the user has no trips, count is 0 and
// maxUpdatedAt is nil.
func TripsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Trip{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
