// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers the materialized itinerary rows: days,
// items, and sources. These tables hold the "current view" of a trip and are
// fully rewritten (delete-then-reinsert) on every applied action batch, so
// the helpers here are deliberately bulk-oriented.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

// ListDays returns all day rows of a trip ordered by day index ascending.
func ListDays(ctx context.Context, db *gorm.DB, tripID string) ([]domain.ItineraryDay, error) {
	var out []domain.ItineraryDay
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("day_index ASC").
		Find(&out).Error
	return out, err
}

// ListItems returns all item rows of a trip ordered (day_id, position).
func ListItems(ctx context.Context, db *gorm.DB, tripID string) ([]domain.ItineraryItem, error) {
	var out []domain.ItineraryItem
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("day_id ASC, position ASC").
		Find(&out).Error
	return out, err
}

// ListSources returns all source rows of a trip.
func ListSources(ctx context.Context, db *gorm.DB, tripID string) ([]domain.TripSource, error) {
	var out []domain.TripSource
	err := db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Find(&out).Error
	return out, err
}

// DeleteItinerary removes every materialized day/item/source row of a trip.
// Items go first so the day foreign key never dangles mid-transaction.
// Deletes are unscoped: materialized rows carry no history, soft-deleting
// them would only leave garbage behind.
func DeleteItinerary(ctx context.Context, db *gorm.DB, tripID string) error {
	h := db.WithContext(ctx).Unscoped()
	if err := h.Where("trip_id = ?", tripID).Delete(&domain.ItineraryItem{}).Error; err != nil {
		return err
	}
	if err := h.Where("trip_id = ?", tripID).Delete(&domain.ItineraryDay{}).Error; err != nil {
		return err
	}
	return h.Where("trip_id = ?", tripID).Delete(&domain.TripSource{}).Error
}

// InsertDays bulk-inserts day rows. A nil/empty slice is a no-op.
func InsertDays(ctx context.Context, db *gorm.DB, days []domain.ItineraryDay) error {
	if len(days) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&days).Error
}

// InsertItems bulk-inserts item rows. A nil/empty slice is a no-op.
func InsertItems(ctx context.Context, db *gorm.DB, items []domain.ItineraryItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

// InsertSources bulk-inserts source rows. A nil/empty slice is a no-op.
func InsertSources(ctx context.Context, db *gorm.DB, sources []domain.TripSource) error {
	if len(sources) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&sources).Error
}
