// Package services – TripService
//
// This file implements TripService, the application-level component that owns
// the trip lifecycle and the transactional action apply protocol. Every apply
// runs inside one database transaction: replay detection via the version
// ledger, draft loading, reduction, materialized rewrite, denormalized trip
// update, immutable version insert, and audit logging either all happen or
// none do.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// trip/user identifiers and batch sizes where applicable. Latest snapshots are
// kept in a small in-process cache keyed per user and trip.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/domain"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/repo"
	"github.com/eu-diogo-ferreira/stori-travel-shiva-hack/internal/travel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// default titles we consider placeholder and eligible for auto-generation
	defaultTripTitle  = "New Trip"
	untitledTripTitle = "Untitled"

	statusApplied = "applied"
)

// TripService coordinates trip persistence, version history, and the
// action apply protocol.
type TripService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Snapshots caches the latest snapshot bytes per (user, trip). Optional;
	// a nil cache disables caching entirely.
	Snapshots *gocache.Cache

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewTripService constructs a TripService with sane defaults.
func NewTripService(db *gorm.DB) *TripService {
	return &TripService{
		DB:          db,
		Snapshots:   gocache.New(5*time.Minute, 10*time.Minute),
		TitleMaxLen: 256,
	}
}

// ApplyInput is one apply submission: a batch of actions plus the idempotency
// key that identifies the operation across retries.
type ApplyInput struct {
	UserID            string
	TripID            string
	ClientOperationID string
	Actions           []travel.Action
	TripStateNext     travel.TripState
	Summary           *string
}

// ApplyResult reports the outcome of an apply. Snapshot carries the exact
// bytes stored in the version row, so a replayed submission returns a
// byte-identical body.
type ApplyResult struct {
	Version    int
	TripState  travel.TripState
	Idempotent bool
	Snapshot   json.RawMessage
}

// Create inserts a new trip owned by userID in the initial workflow state.
// Titles are normalized, trimmed, clipped, and a default fallback is applied.
func (s *TripService) Create(ctx context.Context, userID, title string) (*domain.Trip, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	title = normalizeTitle(title)
	if title == "" {
		title = defaultTripTitle
	}
	return repo.CreateTrip(ctx, s.DB, userID, s.clip(title), string(travel.DefaultTripState()))
}

// Get returns a trip owned by the user.
func (s *TripService) Get(ctx context.Context, userID, tripID string) (*domain.Trip, error) {
	trip, err := repo.GetTrip(ctx, s.DB, tripID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// ListPage returns a page of trips for a user (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *TripService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Trip, int64, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountTrips(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Trip{}, 0, nil
	}

	items, err := repo.ListTripsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Stats returns the trip count and the latest update time for a user,
// used by handlers to build weak ETags for list endpoints.
func (s *TripService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.TripsStats(ctx, s.DB, userID)
}

// UpdateTitle renames a trip, ensuring it exists and belongs to the user.
// Falls back to "Untitled" if the title is blank.
func (s *TripService) UpdateTitle(ctx context.Context, userID, tripID, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		title = untitledTripTitle
	}
	if _, err := repo.GetTrip(ctx, s.DB, tripID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}
	return repo.UpdateTripTitle(ctx, s.DB, tripID, userID, s.clip(title))
}

// ApplyActions runs one apply operation transactionally. A submission whose
// client operation id already produced a version is replayed: the stored
// version number and snapshot bytes are returned with Idempotent set, and no
// rows change.
func (s *TripService) ApplyActions(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "ApplyActions",
		trace.WithAttributes(
			attribute.String("trip.id", in.TripID),
			attribute.String("user.id", in.UserID),
			attribute.Int("actions.count", len(in.Actions)),
		),
	)
	defer span.End()

	opID := strings.TrimSpace(in.ClientOperationID)
	if opID == "" {
		return nil, ErrMissingOperationID
	}

	var out *ApplyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replay check first: a known operation id short-circuits before any
		// state is touched.
		if v, err := repo.GetVersionByClientOp(ctx, tx, in.TripID, opID, in.UserID); err == nil {
			out = &ApplyResult{
				Version:    v.VersionNumber,
				TripState:  snapshotTripState(v.Snapshot),
				Idempotent: true,
				Snapshot:   json.RawMessage(v.Snapshot),
			}
			return nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		trip, draft, err := s.loadDraft(ctx, tx, in.TripID, in.UserID)
		if err != nil {
			return err
		}

		next, err := travel.ApplyActions(draft, in.Actions, in.TripStateNext)
		if err != nil {
			return err
		}

		nextVersion := trip.LastVersion + 1

		// Rewrite the materialized current state. Item ids carried over from
		// the previous state survive; day and source rows get fresh ids.
		if err := repo.DeleteItinerary(ctx, tx, in.TripID); err != nil {
			return err
		}
		days, items, sources := materializeDraft(in.TripID, next)
		if err := repo.InsertDays(ctx, tx, days); err != nil {
			return err
		}
		if err := repo.InsertSources(ctx, tx, sources); err != nil {
			return err
		}
		if err := repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		updates, err := denormUpdates(next, nextVersion)
		if err != nil {
			return err
		}
		if err := repo.UpdateTripMaterialized(ctx, tx, in.TripID, updates); err != nil {
			return err
		}

		raw, err := json.Marshal(travel.BuildSnapshot(in.TripID, nextVersion, next))
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		version := &domain.ItineraryVersion{
			ID:                uuid.NewString(),
			TripID:            in.TripID,
			VersionNumber:     nextVersion,
			BaseVersion:       trip.LastVersion,
			ClientOperationID: opID,
			Summary:           in.Summary,
			Snapshot:          datatypes.JSON(raw),
			CreatedBy:         in.UserID,
		}
		if err := repo.InsertVersion(ctx, tx, version); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrOperationConflict
			}
			return err
		}

		logs := make([]domain.TripActionLog, 0, len(in.Actions))
		for _, a := range in.Actions {
			logs = append(logs, domain.TripActionLog{
				ID:                uuid.NewString(),
				TripID:            in.TripID,
				VersionID:         version.ID,
				ClientOperationID: opID,
				ActionType:        string(a.Type),
				Payload:           datatypes.JSON(a.Payload),
				Status:            statusApplied,
				CreatedBy:         in.UserID,
			})
		}
		if err := repo.InsertActionLogs(ctx, tx, logs); err != nil {
			return err
		}

		out = &ApplyResult{
			Version:   nextVersion,
			TripState: next.TripState,
			Snapshot:  json.RawMessage(raw),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Snapshots != nil && out != nil {
		s.Snapshots.Set(snapshotKey(in.UserID, in.TripID), out.Snapshot, gocache.DefaultExpiration)
	}
	return out, nil
}

// Snapshot returns the latest snapshot for a trip. For trips that already
// have version history it returns the stored bytes verbatim; for a fresh trip
// it builds the snapshot from the materialized rows at version 0.
func (s *TripService) Snapshot(ctx context.Context, userID, tripID string) (json.RawMessage, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "Snapshot",
		trace.WithAttributes(
			attribute.String("trip.id", tripID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if s.Snapshots != nil {
		if cached, ok := s.Snapshots.Get(snapshotKey(userID, tripID)); ok {
			if raw, ok := cached.(json.RawMessage); ok {
				return raw, nil
			}
		}
	}

	trip, draft, err := s.loadDraft(ctx, s.DB, tripID, userID)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	v, err := repo.LatestVersion(ctx, s.DB, tripID)
	switch {
	case err == nil:
		raw = json.RawMessage(v.Snapshot)
	case errors.Is(err, repo.ErrNotFound):
		raw, err = json.Marshal(travel.BuildSnapshot(tripID, trip.LastVersion, draft))
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
	default:
		return nil, err
	}

	if s.Snapshots != nil {
		s.Snapshots.Set(snapshotKey(userID, tripID), raw, gocache.DefaultExpiration)
	}
	return raw, nil
}

// ListVersionsPage returns a page of version history for a trip, newest
// first.
func (s *TripService) ListVersionsPage(ctx context.Context, userID, tripID string, page, pageSize int) ([]domain.ItineraryVersion, int64, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "ListVersionsPage",
		trace.WithAttributes(
			attribute.String("trip.id", tripID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetTrip(ctx, s.DB, tripID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrTripNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountVersions(ctx, s.DB, tripID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ItineraryVersion{}, 0, nil
	}

	items, err := repo.ListVersionsPage(ctx, s.DB, tripID, offset, pageSize)
	return items, total, err
}

// ActionLogs returns the most recent audit-log rows for a trip.
func (s *TripService) ActionLogs(ctx context.Context, userID, tripID string, limit int) ([]domain.TripActionLog, error) {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "ActionLogs",
		trace.WithAttributes(attribute.String("trip.id", tripID)),
	)
	defer span.End()

	if _, err := repo.GetTrip(ctx, s.DB, tripID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return repo.ListActionLogs(ctx, s.DB, tripID, limit)
}

// DeleteActionsByVersion purges audit-log rows belonging to the given version
// ids. Version rows and snapshots stay untouched; only the per-action trail
// is removed.
func (s *TripService) DeleteActionsByVersion(ctx context.Context, userID, tripID string, versionIDs []string) error {
	tr := otel.Tracer("services/TripService")
	ctx, span := tr.Start(ctx, "DeleteActionsByVersion",
		trace.WithAttributes(
			attribute.String("trip.id", tripID),
			attribute.Int("versions.count", len(versionIDs)),
		),
	)
	defer span.End()

	if _, err := repo.GetTrip(ctx, s.DB, tripID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}
	return repo.DeleteActionLogsByVersion(ctx, s.DB, tripID, versionIDs)
}

// loadDraft fetches the trip row plus its materialized days, items, and
// sources and assembles the in-memory draft the reducer works on. The handle
// may be a transaction; every apply loads through its own tx.
func (s *TripService) loadDraft(ctx context.Context, db *gorm.DB, tripID, userID string) (*domain.Trip, *travel.TripDraft, error) {
	trip, err := repo.GetTrip(ctx, db, tripID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrTripNotFound
		}
		return nil, nil, err
	}

	days, err := repo.ListDays(ctx, db, tripID)
	if err != nil {
		return nil, nil, err
	}
	items, err := repo.ListItems(ctx, db, tripID)
	if err != nil {
		return nil, nil, err
	}
	sources, err := repo.ListSources(ctx, db, tripID)
	if err != nil {
		return nil, nil, err
	}

	draft := &travel.TripDraft{
		TripState: travel.NormalizeTripState(trip.TripState),
		Days:      make([]travel.DayDraft, 0, len(days)),
	}
	if len(trip.Preferences) > 0 {
		if err := json.Unmarshal(trip.Preferences, &draft.Preferences); err != nil {
			return nil, nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	// Denormalized columns win over the stored blob.
	if trip.Origin != nil {
		draft.Preferences.Origin = *trip.Origin
	}
	if trip.Destination != nil {
		draft.Preferences.Destination = *trip.Destination
	}
	if trip.Currency != nil {
		draft.Preferences.Currency = *trip.Currency
	}
	if trip.BudgetMinCents != nil {
		draft.Preferences.BudgetMin = centsToBudget(trip.BudgetMinCents)
	}
	if trip.BudgetMaxCents != nil {
		draft.Preferences.BudgetMax = centsToBudget(trip.BudgetMaxCents)
	}

	srcByID := lo.KeyBy(sources, func(src domain.TripSource) string { return src.ID })
	itemsByDay := lo.GroupBy(items, func(it domain.ItineraryItem) string { return it.DayID })

	for _, d := range days {
		day := travel.DayDraft{DayIndex: d.DayIndex, Items: []travel.ItemDraft{}}
		if d.Date != nil {
			day.Date = *d.Date
		}
		// itemsByDay preserves the position order of the item query.
		for _, it := range itemsByDay[d.ID] {
			item := travel.ItemDraft{
				ID:          it.ID,
				DayIndex:    d.DayIndex,
				Position:    it.Position,
				Type:        travel.ItemType(it.ItemType),
				Title:       it.Title,
				DurationMin: it.DurationMin,
			}
			if it.Description != nil {
				item.Description = *it.Description
			}
			if it.Location != nil {
				item.Location = *it.Location
			}
			if it.SourceID != nil {
				if src, ok := srcByID[*it.SourceID]; ok {
					item.Source = sourceDraft(src)
				}
			}
			day.Items = append(day.Items, item)
		}
		draft.Days = append(draft.Days, day)
	}
	return trip, draft, nil
}

// materializeDraft converts a reduced draft into fresh persistence rows.
// Item ids are preserved so references survive across versions; day and
// source rows are identified by new ids on every rewrite.
func materializeDraft(tripID string, draft *travel.TripDraft) ([]domain.ItineraryDay, []domain.ItineraryItem, []domain.TripSource) {
	days := make([]domain.ItineraryDay, 0, len(draft.Days))
	items := make([]domain.ItineraryItem, 0)
	sources := make([]domain.TripSource, 0)

	for _, day := range draft.Days {
		d := domain.ItineraryDay{
			ID:       uuid.NewString(),
			TripID:   tripID,
			DayIndex: day.DayIndex,
			Date:     strPtr(day.Date),
		}
		for _, it := range day.Items {
			row := domain.ItineraryItem{
				ID:          it.ID,
				TripID:      tripID,
				DayID:       d.ID,
				ItemType:    string(it.Type),
				Title:       it.Title,
				Description: strPtr(it.Description),
				Location:    strPtr(it.Location),
				DurationMin: it.DurationMin,
				Position:    it.Position,
			}
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			if it.Source != nil {
				src := domain.TripSource{
					ID:        uuid.NewString(),
					TripID:    tripID,
					URL:       it.Source.URL,
					Title:     strPtr(it.Source.Title),
					Publisher: strPtr(it.Source.Publisher),
					Snippet:   strPtr(it.Source.Snippet),
				}
				sources = append(sources, src)
				row.SourceID = &src.ID
			}
			items = append(items, row)
		}
		days = append(days, d)
	}
	return days, items, sources
}

// denormUpdates builds the column map for the trip row update: workflow
// state, the preferences blob, the denormalized filter columns, and the
// bumped version counter.
func denormUpdates(draft *travel.TripDraft, nextVersion int) (map[string]any, error) {
	prefsRaw, err := json.Marshal(draft.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	p := draft.Preferences
	return map[string]any{
		"trip_state":       string(draft.TripState),
		"preferences":      datatypes.JSON(prefsRaw),
		"origin":           strPtr(p.Origin),
		"destination":      strPtr(p.Destination),
		"start_date":       strPtr(p.StartDate),
		"end_date":         strPtr(p.EndDate),
		"currency":         strPtr(p.Currency),
		"budget_min_cents": budgetToCents(p.BudgetMin),
		"budget_max_cents": budgetToCents(p.BudgetMax),
		"last_version":     nextVersion,
	}, nil
}

// snapshotTripState extracts the workflow state from stored snapshot bytes,
// used when replaying an operation without re-running the reducer.
func snapshotTripState(raw []byte) travel.TripState {
	var probe struct {
		TripState string `json:"tripState"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return travel.DefaultTripState()
	}
	return travel.NormalizeTripState(probe.TripState)
}

func sourceDraft(src domain.TripSource) *travel.TripSource {
	out := &travel.TripSource{URL: src.URL}
	if src.Title != nil {
		out.Title = *src.Title
	}
	if src.Publisher != nil {
		out.Publisher = *src.Publisher
	}
	if src.Snippet != nil {
		out.Snippet = *src.Snippet
	}
	return out
}

func snapshotKey(userID, tripID string) string {
	return userID + "/" + tripID
}

// budgetToCents converts a currency amount to integer cents for storage.
func budgetToCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := int64(math.Round(*v * 100))
	return &c
}

// centsToBudget converts stored cents back to currency units.
func centsToBudget(v *int64) *float64 {
	if v == nil {
		return nil
	}
	c := float64(*v) / 100
	return &c
}

// strPtr returns nil for the empty string, otherwise a pointer to s.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// clip truncates a trip title to the configured maximum rune length.
func (s *TripService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
