// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// TripMessage model (the planning conversation).
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
)

// CreateTripMessage inserts a new conversation message row.
func CreateTripMessage(db *gorm.DB, tripID, role, content string) (*domain.TripMessage, error) {
	m := &domain.TripMessage{
		ID:        uuid.NewString(),
		TripID:    tripID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// CountTripMessages uses a raw COUNT so a missing table surfaces as an error.
func CountTripMessages(db *gorm.DB, tripID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM trip_messages WHERE trip_id = ? AND deleted_at IS NULL", tripID).Scan(&total).Error
	return total, err
}

// ListTripMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListTripMessagesPage(db *gorm.DB, tripID string, offset, limit int) ([]domain.TripMessage, error) {
	var out []domain.TripMessage
	err := db.
		Where("trip_id = ?", tripID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
