package travel

import "github.com/samber/lo"

// TripSnapshot is the externally visible, versioned serialization of a trip.
// It is the exact wire shape persisted in itinerary_versions and returned by
// the API, and must round-trip through JSON unchanged.
type TripSnapshot struct {
	TripID      string          `json:"tripId"`
	Version     int             `json:"version"`
	TripState   TripState       `json:"tripState"`
	Preferences TripPreferences `json:"preferences"`
	Days        []SnapshotDay   `json:"days"`
}

// SnapshotDay is one day of the snapshot.
type SnapshotDay struct {
	DayIndex int            `json:"dayIndex"`
	Date     string         `json:"date,omitempty"`
	Items    []SnapshotItem `json:"items"`
}

// SnapshotItem is one itinerary entry of the snapshot.
type SnapshotItem struct {
	ID          string      `json:"id"`
	Type        ItemType    `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	DurationMin *int        `json:"durationMin,omitempty"`
	Position    int         `json:"position"`
	Source      *TripSource `json:"source,omitempty"`
}

// BuildSnapshot projects a draft plus identity/version metadata into the
// snapshot shape. Pure; the draft is read, never retained.
func BuildSnapshot(tripID string, version int, draft *TripDraft) *TripSnapshot {
	return &TripSnapshot{
		TripID:      tripID,
		Version:     version,
		TripState:   draft.TripState,
		Preferences: draft.Preferences.clone(),
		Days: lo.Map(draft.Days, func(day DayDraft, _ int) SnapshotDay {
			return SnapshotDay{
				DayIndex: day.DayIndex,
				Date:     day.Date,
				Items: lo.Map(day.Items, func(item ItemDraft, _ int) SnapshotItem {
					out := SnapshotItem{
						ID:          item.ID,
						Type:        item.Type,
						Title:       item.Title,
						Description: item.Description,
						Location:    item.Location,
						DurationMin: cloneInt(item.DurationMin),
						Position:    item.Position,
					}
					if item.Source != nil {
						src := *item.Source
						out.Source = &src
					}
					return out
				}),
			}
		}),
	}
}
