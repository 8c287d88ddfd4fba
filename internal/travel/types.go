package travel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ItemType classifies an itinerary item.
type ItemType string

const (
	ItemAttraction ItemType = "attraction"
	ItemRestaurant ItemType = "restaurant"
	ItemHotel      ItemType = "hotel"
	ItemTransport  ItemType = "transport"
	ItemActivity   ItemType = "activity"
	ItemOther      ItemType = "other"
)

// CompanionType describes who the user travels with.
type CompanionType string

const (
	CompanionSolo     CompanionType = "solo"
	CompanionCouple   CompanionType = "couple"
	CompanionFamily   CompanionType = "family"
	CompanionFriends  CompanionType = "friends"
	CompanionBusiness CompanionType = "business"
)

// Pace is the desired intensity of the itinerary.
type Pace string

const (
	PaceSlow     Pace = "slow"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
)

// TripPreferences holds the scalar planning inputs collected during
// discovery. All fields are optional; numeric fields use pointers so an
// explicit zero survives the JSON round trip.
type TripPreferences struct {
	Origin       string        `json:"origin,omitempty"`
	Destination  string        `json:"destination,omitempty"`
	StartDate    string        `json:"startDate,omitempty"`
	EndDate      string        `json:"endDate,omitempty"`
	BudgetMin    *float64      `json:"budgetMin,omitempty"`
	BudgetMax    *float64      `json:"budgetMax,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	Travelers    *int          `json:"travelers,omitempty"`
	Companion    CompanionType `json:"companionType,omitempty"`
	Pace         Pace          `json:"pace,omitempty"`
	TravelStyles []string      `json:"travelStyles,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// TripSource is a citation attached to an item, copied by value.
type TripSource struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// ItemDraft is one itinerary entry inside a day. Position is 1-based and
// contiguous within a day after normalization.
type ItemDraft struct {
	ID          string      `json:"id"`
	DayIndex    int         `json:"dayIndex"`
	Position    int         `json:"position"`
	Type        ItemType    `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	DurationMin *int        `json:"durationMin,omitempty"`
	Source      *TripSource `json:"source,omitempty"`
}

// DayDraft is one itinerary day. DayIndex is a positive integer unique per
// trip; days are kept sorted ascending after every reducer run.
type DayDraft struct {
	DayIndex int         `json:"dayIndex"`
	Date     string      `json:"date,omitempty"`
	Items    []ItemDraft `json:"items"`
}

// TripDraft is the reducer's unit of work: the full mutable content of a
// trip held in memory for the duration of one operation.
type TripDraft struct {
	TripState   TripState       `json:"tripState"`
	Preferences TripPreferences `json:"preferences"`
	Days        []DayDraft      `json:"days"`
}

// NewTripDraft returns an empty draft in the default workflow state.
func NewTripDraft() *TripDraft {
	return &TripDraft{TripState: DefaultTripState(), Days: []DayDraft{}}
}

// Clone returns a deep structural copy of the draft. Every slice and pointer
// is copied so mutations of the clone can never be observed through the
// original. All draft fields are plain values, so nothing is excluded from
// the copy (unlike a serialize/deserialize round trip, which this replaces).
func (d *TripDraft) Clone() *TripDraft {
	out := &TripDraft{
		TripState:   d.TripState,
		Preferences: d.Preferences.clone(),
		Days:        make([]DayDraft, len(d.Days)),
	}
	for i, day := range d.Days {
		out.Days[i] = day.clone()
	}
	return out
}

func (p TripPreferences) clone() TripPreferences {
	out := p
	out.BudgetMin = cloneFloat(p.BudgetMin)
	out.BudgetMax = cloneFloat(p.BudgetMax)
	out.Travelers = cloneInt(p.Travelers)
	if p.TravelStyles != nil {
		out.TravelStyles = append([]string(nil), p.TravelStyles...)
	}
	return out
}

func (day DayDraft) clone() DayDraft {
	out := day
	out.Items = make([]ItemDraft, len(day.Items))
	for i, item := range day.Items {
		out.Items[i] = item.clone()
	}
	return out
}

func (it ItemDraft) clone() ItemDraft {
	out := it
	out.DurationMin = cloneInt(it.DurationMin)
	if it.Source != nil {
		src := *it.Source
		out.Source = &src
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ActionType discriminates the closed set of edit actions the reducer
// understands.
type ActionType string

const (
	ActionCreateDay         ActionType = "CREATE_DAY"
	ActionRemoveDay         ActionType = "REMOVE_DAY"
	ActionAddItem           ActionType = "ADD_ITEM"
	ActionRemoveItem        ActionType = "REMOVE_ITEM"
	ActionMoveItem          ActionType = "MOVE_ITEM"
	ActionReorderItems      ActionType = "REORDER_ITEMS"
	ActionUpdateItem        ActionType = "UPDATE_ITEM"
	ActionUpdatePreferences ActionType = "UPDATE_TRIP_PREFERENCES"
	ActionUpdateDates       ActionType = "UPDATE_DATES"
	ActionUpdateBudget      ActionType = "UPDATE_BUDGET"
	ActionSetTripState      ActionType = "SET_TRIP_STATE"
)

// Action is one typed edit instruction. The payload stays raw until the
// reducer dispatches on Type; keeping the bytes verbatim lets the audit log
// store exactly what the client submitted.
type Action struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ItemInput is the client-supplied shape of a new item (ADD_ITEM).
type ItemInput struct {
	Type        ItemType    `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	DurationMin *int        `json:"durationMin,omitempty"`
	DayIndex    int         `json:"dayIndex"`
	Position    *int        `json:"position,omitempty"`
	Source      *TripSource `json:"source,omitempty"`
}

// ItemPatch is a partial item update (UPDATE_ITEM). Nil fields are left
// untouched.
type ItemPatch struct {
	Type        *ItemType   `json:"type,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Location    *string     `json:"location,omitempty"`
	DurationMin *int        `json:"durationMin,omitempty"`
	Source      *TripSource `json:"source,omitempty"`
}

// PreferencesPatch is a partial preferences update; nil fields are preserved
// (shallow merge).
type PreferencesPatch struct {
	Origin       *string        `json:"origin,omitempty"`
	Destination  *string        `json:"destination,omitempty"`
	StartDate    *string        `json:"startDate,omitempty"`
	EndDate      *string        `json:"endDate,omitempty"`
	BudgetMin    *float64       `json:"budgetMin,omitempty"`
	BudgetMax    *float64       `json:"budgetMax,omitempty"`
	Currency     *string        `json:"currency,omitempty"`
	Travelers    *int           `json:"travelers,omitempty"`
	Companion    *CompanionType `json:"companionType,omitempty"`
	Pace         *Pace          `json:"pace,omitempty"`
	TravelStyles []string       `json:"travelStyles,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
}

// Per-action payload shapes.
type (
	CreateDayPayload struct {
		DayIndex int    `json:"dayIndex"`
		Date     string `json:"date,omitempty"`
	}

	RemoveDayPayload struct {
		DayIndex int `json:"dayIndex"`
	}

	AddItemPayload struct {
		Item ItemInput `json:"item"`
	}

	RemoveItemPayload struct {
		ItemID string `json:"itemId"`
	}

	MoveItemPayload struct {
		ItemID     string `json:"itemId"`
		ToDayIndex int    `json:"toDayIndex"`
		ToPosition *int   `json:"toPosition,omitempty"`
	}

	ReorderItemsPayload struct {
		DayIndex       int      `json:"dayIndex"`
		OrderedItemIDs []string `json:"orderedItemIds"`
	}

	UpdateItemPayload struct {
		ItemID string    `json:"itemId"`
		Patch  ItemPatch `json:"patch"`
	}

	UpdatePreferencesPayload struct {
		Patch PreferencesPatch `json:"patch"`
	}

	UpdateDatesPayload struct {
		StartDate string            `json:"startDate,omitempty"`
		EndDate   string            `json:"endDate,omitempty"`
		DayDates  map[string]string `json:"dayDates,omitempty"`
	}

	UpdateBudgetPayload struct {
		BudgetMin *float64 `json:"budgetMin,omitempty"`
		BudgetMax *float64 `json:"budgetMax,omitempty"`
		Currency  *string  `json:"currency,omitempty"`
	}

	SetTripStatePayload struct {
		TripState TripState `json:"tripState"`
	}
)

// Reducer error values. The service layer maps these onto its own taxonomy;
// all of them abort the enclosing action batch.
var (
	// ErrInvalidTransition marks an illegal workflow state change; the
	// wrapped message names both states.
	ErrInvalidTransition = errors.New("invalid trip state transition")

	// ErrReorderMismatch is returned when REORDER_ITEMS supplies an id set
	// different from the day's current items.
	ErrReorderMismatch = errors.New("ordered item ids must match current items in the day")

	// ErrUnsupportedAction is the defensive branch for unknown action
	// discriminators; reachable only on untrusted input.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// invalidTransition wraps ErrInvalidTransition with the offending pair.
func invalidTransition(from, to TripState) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
