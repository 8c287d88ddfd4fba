// Package domain defines the persistence models for trips, itinerary
// structure, version history, and the audit trail. These types are mapped
// with GORM and form the core data layer of the travel planner.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trip is the top-level planning document owned by one user. Preferences are
// stored twice: the full JSON blob drives the draft, while a handful of
// denormalized columns (origin, destination, dates, budget) keep list views
// and filters cheap.
//
// LastVersion is the monotonic version counter bumped by every successfully
// applied action batch; version 0 is a freshly created trip.
type Trip struct {
	ID             string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID         string         `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_trips"`
	Title          string         `json:"title"         gorm:"type:varchar(256);not null;default:'New Trip'"`
	TripState      string         `json:"trip_state"    gorm:"type:varchar(16);not null"`
	Preferences    datatypes.JSON `json:"preferences"   gorm:"not null"`
	Origin         *string        `json:"origin,omitempty"      gorm:"type:varchar(256)"`
	Destination    *string        `json:"destination,omitempty" gorm:"type:varchar(256)"`
	StartDate      *string        `json:"start_date,omitempty"  gorm:"type:varchar(10)"`
	EndDate        *string        `json:"end_date,omitempty"    gorm:"type:varchar(10)"`
	BudgetMinCents *int64         `json:"budget_min_cents,omitempty"`
	BudgetMaxCents *int64         `json:"budget_max_cents,omitempty"`
	Currency       *string        `json:"currency,omitempty" gorm:"type:varchar(3)"`
	LastVersion    int            `json:"last_version" gorm:"not null;default:0"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Trip.
func (Trip) TableName() string { return "trips" }

// ItineraryDay is a materialized current-state row: one day of the trip's
// latest itinerary. Day rows are fully rewritten on every applied action
// batch; history lives in ItineraryVersion, not here.
type ItineraryDay struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	TripID    string    `json:"trip_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_trip_day,priority:1"`
	DayIndex  int       `json:"day_index" gorm:"not null;uniqueIndex:ux_trip_day,priority:2"`
	Date      *string   `json:"date,omitempty" gorm:"type:varchar(10)"`
	CreatedAt time.Time `json:"created_at"`

	// Day rows are cascade-deleted with their trip.
	Trip Trip `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ItineraryDay.
func (ItineraryDay) TableName() string { return "itinerary_days" }

// TripSource is a citation attached to an itinerary item, copied by value
// from the client input and rewritten together with the items.
type TripSource struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	TripID    string    `json:"trip_id" gorm:"type:char(36);not null;index"`
	URL       string    `json:"url"     gorm:"type:text;not null"`
	Title     *string   `json:"title,omitempty"     gorm:"type:varchar(256)"`
	Publisher *string   `json:"publisher,omitempty" gorm:"type:varchar(256)"`
	Snippet   *string   `json:"snippet,omitempty"   gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for TripSource.
func (TripSource) TableName() string { return "trip_sources" }

// ItineraryItem is a materialized current-state row: one itinerary entry of
// the trip's latest itinerary. Position is 1-based and contiguous within a
// day. Like days, items are delete-and-reinserted on every apply.
type ItineraryItem struct {
	ID          string    `json:"id"       gorm:"type:char(36);primaryKey"`
	TripID      string    `json:"trip_id"  gorm:"type:char(36);not null;index"`
	DayID       string    `json:"day_id"   gorm:"type:char(36);not null;index"`
	ItemType    string    `json:"item_type" gorm:"type:varchar(16);not null;check:item_type IN ('attraction','restaurant','hotel','transport','activity','other')"`
	Title       string    `json:"title"    gorm:"type:varchar(256);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	Location    *string   `json:"location,omitempty"    gorm:"type:varchar(256)"`
	DurationMin *int      `json:"duration_min,omitempty" gorm:"check:duration_min IS NULL OR (duration_min >= 1 AND duration_min <= 1440)"`
	Position    int       `json:"position" gorm:"not null"`
	SourceID    *string   `json:"source_id,omitempty" gorm:"type:char(36)"`
	CreatedAt   time.Time `json:"created_at"`

	// Item rows are cascade-deleted with their day.
	Day ItineraryDay `json:"-" gorm:"foreignKey:DayID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ItineraryItem.
func (ItineraryItem) TableName() string { return "itinerary_items" }

// ItineraryVersion is the immutable, append-only version history: one row
// per successfully applied action batch, holding the complete snapshot as it
// was returned to the client. It doubles as the idempotency ledger: the
// unique (trip_id, client_operation_id) index is what turns a retried
// submission into a replay instead of a second application.
type ItineraryVersion struct {
	ID                string         `json:"id"      gorm:"type:char(36);primaryKey"`
	TripID            string         `json:"trip_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_trip_version,priority:1;uniqueIndex:ux_trip_client_op,priority:1"`
	VersionNumber     int            `json:"version_number" gorm:"not null;uniqueIndex:ux_trip_version,priority:2"`
	BaseVersion       int            `json:"base_version"   gorm:"not null"`
	ClientOperationID string         `json:"client_operation_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_trip_client_op,priority:2"`
	Summary           *string        `json:"summary,omitempty" gorm:"type:text"`
	Snapshot          datatypes.JSON `json:"snapshot" gorm:"not null"`
	CreatedBy         string         `json:"created_by" gorm:"type:varchar(64);not null"`
	CreatedAt         time.Time      `json:"created_at"`
}

// TableName returns the database table name for ItineraryVersion.
func (ItineraryVersion) TableName() string { return "itinerary_versions" }

// TripActionLog is the append-only audit record: one row per applied action,
// referencing the version that batch produced. Payload keeps the exact JSON
// the client submitted.
type TripActionLog struct {
	ID                string         `json:"id"         gorm:"type:char(36);primaryKey"`
	TripID            string         `json:"trip_id"    gorm:"type:char(36);not null;index"`
	VersionID         string         `json:"version_id" gorm:"type:char(36);not null;index"`
	ClientOperationID string         `json:"client_operation_id" gorm:"type:varchar(128);not null"`
	ActionType        string         `json:"action_type" gorm:"type:varchar(32);not null"`
	Payload           datatypes.JSON `json:"payload"`
	Status            string         `json:"status"     gorm:"type:varchar(16);not null;default:'applied'"`
	CreatedBy         string         `json:"created_by" gorm:"type:varchar(64);not null"`
	CreatedAt         time.Time      `json:"created_at"`
}

// TableName returns the database table name for TripActionLog.
func (TripActionLog) TableName() string { return "trip_action_logs" }

// TripMessage is one utterance of the planning conversation attached to a
// trip, authored either by the "user" or the "assistant".
type TripMessage struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	TripID    string         `json:"trip_id" gorm:"type:char(36);not null;index:idx_trip_msgs,priority:1"`
	Role      string         `json:"role"    gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_trip_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Messages are cascade-deleted with their trip.
	Trip Trip `json:"-" gorm:"foreignKey:TripID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TripMessage.
func (TripMessage) TableName() string { return "trip_messages" }
