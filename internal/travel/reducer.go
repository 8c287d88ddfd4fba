package travel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// newItemID generates ids for items created by ADD_ITEM. Package variable so
// tests can pin deterministic ids.
var newItemID = uuid.NewString

// ApplyActions applies an ordered batch of actions to a draft and returns
// the resulting draft. The input draft is never mutated: a deep clone is
// taken first, so callers observe their original value unchanged even when
// the batch fails midway.
//
// Actions are applied left to right; the first failing action fails the
// whole call. Partial application is never surfaced to the caller; the
// transactional wrapper in the services package discards everything on
// error.
//
// When tripStateNext is non-empty and differs from the draft's state after
// the batch, one more transition is validated and applied, so the final
// state can be set with or without an in-batch SET_TRIP_STATE.
//
// Normalization always runs last: days are sorted ascending by dayIndex and
// item positions are re-derived from array order (1..N). Array order is
// authoritative: MOVE_ITEM and REORDER_ITEMS manipulate it directly, and
// re-sorting by the stored position field would silently undo them.
func ApplyActions(initial *TripDraft, actions []Action, tripStateNext TripState) (*TripDraft, error) {
	draft := initial.Clone()

	for i, action := range actions {
		if err := applyOne(draft, action); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, action.Type, err)
		}
	}

	if tripStateNext != "" && tripStateNext != draft.TripState {
		if !IsValidTransition(draft.TripState, tripStateNext) {
			return nil, invalidTransition(draft.TripState, tripStateNext)
		}
		draft.TripState = tripStateNext
	}

	normalizeDraft(draft)
	return draft, nil
}

func applyOne(draft *TripDraft, action Action) error {
	switch action.Type {
	case ActionCreateDay:
		var p CreateDayPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		day := ensureDay(draft, p.DayIndex)
		if p.Date != "" {
			day.Date = p.Date
		}

	case ActionRemoveDay:
		var p RemoveDayPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		kept := draft.Days[:0]
		for _, day := range draft.Days {
			if day.DayIndex != p.DayIndex {
				kept = append(kept, day)
			}
		}
		draft.Days = kept

	case ActionAddItem:
		var p AddItemPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		day := ensureDay(draft, p.Item.DayIndex)
		item := ItemDraft{
			ID:          newItemID(),
			DayIndex:    p.Item.DayIndex,
			Type:        p.Item.Type,
			Title:       p.Item.Title,
			Description: p.Item.Description,
			Location:    p.Item.Location,
			DurationMin: cloneInt(p.Item.DurationMin),
			Source:      p.Item.Source,
		}
		if p.Item.Position != nil && *p.Item.Position >= 1 && *p.Item.Position <= len(day.Items) {
			item.Position = *p.Item.Position
			insertItem(day, *p.Item.Position-1, item)
		} else {
			item.Position = len(day.Items) + 1
			day.Items = append(day.Items, item)
		}

	case ActionRemoveItem:
		var p RemoveItemPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		removeItemByID(draft, p.ItemID)

	case ActionMoveItem:
		var p MoveItemPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		found := findItem(draft, p.ItemID)
		if found == nil {
			return nil // no-op when the item does not exist
		}
		moved := found.clone()
		moved.DayIndex = p.ToDayIndex
		removeItemByID(draft, p.ItemID)
		target := ensureDay(draft, p.ToDayIndex)
		idx := len(target.Items)
		if p.ToPosition != nil && *p.ToPosition > 0 {
			idx = *p.ToPosition - 1
		}
		// Permissive clamp: an out-of-range toPosition appends instead of
		// failing, mirroring the drag-and-drop UI semantics.
		if idx > len(target.Items) {
			idx = len(target.Items)
		}
		insertItem(target, idx, moved)

	case ActionReorderItems:
		var p ReorderItemsPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		day := ensureDay(draft, p.DayIndex)
		if !sameIDSet(day.Items, p.OrderedItemIDs) {
			return ErrReorderMismatch
		}
		byID := make(map[string]ItemDraft, len(day.Items))
		for _, item := range day.Items {
			byID[item.ID] = item
		}
		reordered := make([]ItemDraft, 0, len(p.OrderedItemIDs))
		for _, id := range p.OrderedItemIDs {
			item, ok := byID[id]
			if !ok {
				return fmt.Errorf("item %s not found during reorder", id)
			}
			reordered = append(reordered, item)
		}
		day.Items = reordered

	case ActionUpdateItem:
		var p UpdateItemPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		found := findItem(draft, p.ItemID)
		if found == nil {
			return nil
		}
		patchItem(found, p.Patch)

	case ActionUpdatePreferences:
		var p UpdatePreferencesPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		patchPreferences(&draft.Preferences, p.Patch)

	case ActionUpdateDates:
		var p UpdateDatesPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		if p.StartDate != "" {
			draft.Preferences.StartDate = p.StartDate
		}
		if p.EndDate != "" {
			draft.Preferences.EndDate = p.EndDate
		}
		for key, date := range p.DayDates {
			dayIndex, err := strconv.Atoi(key)
			if err != nil {
				continue // non-numeric day keys are skipped
			}
			ensureDay(draft, dayIndex).Date = date
		}

	case ActionUpdateBudget:
		var p UpdateBudgetPayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		if p.BudgetMin != nil {
			draft.Preferences.BudgetMin = cloneFloat(p.BudgetMin)
		}
		if p.BudgetMax != nil {
			draft.Preferences.BudgetMax = cloneFloat(p.BudgetMax)
		}
		if p.Currency != nil {
			draft.Preferences.Currency = *p.Currency
		}

	case ActionSetTripState:
		var p SetTripStatePayload
		if err := decodePayload(action.Payload, &p); err != nil {
			return err
		}
		if !IsValidTransition(draft.TripState, p.TripState) {
			return invalidTransition(draft.TripState, p.TripState)
		}
		draft.TripState = p.TripState

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, action.Type)
	}
	return nil
}

// decodePayload unmarshals an action payload, treating an absent payload as
// an empty object so zero-value payloads stay valid.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// ensureDay returns the day with the given index, creating it when absent.
// CREATE_DAY idempotency falls out of this helper.
func ensureDay(draft *TripDraft, dayIndex int) *DayDraft {
	for i := range draft.Days {
		if draft.Days[i].DayIndex == dayIndex {
			return &draft.Days[i]
		}
	}
	draft.Days = append(draft.Days, DayDraft{DayIndex: dayIndex, Items: []ItemDraft{}})
	return &draft.Days[len(draft.Days)-1]
}

func findItem(draft *TripDraft, itemID string) *ItemDraft {
	for i := range draft.Days {
		for j := range draft.Days[i].Items {
			if draft.Days[i].Items[j].ID == itemID {
				return &draft.Days[i].Items[j]
			}
		}
	}
	return nil
}

func removeItemByID(draft *TripDraft, itemID string) bool {
	for i := range draft.Days {
		items := draft.Days[i].Items
		for j := range items {
			if items[j].ID == itemID {
				draft.Days[i].Items = append(items[:j], items[j+1:]...)
				return true
			}
		}
	}
	return false
}

func insertItem(day *DayDraft, idx int, item ItemDraft) {
	day.Items = append(day.Items, ItemDraft{})
	copy(day.Items[idx+1:], day.Items[idx:])
	day.Items[idx] = item
}

// sameIDSet compares the day's item ids against the requested order,
// ignoring order but not multiplicity.
func sameIDSet(items []ItemDraft, ids []string) bool {
	if len(items) != len(ids) {
		return false
	}
	current := make([]string, len(items))
	for i, item := range items {
		current[i] = item.ID
	}
	requested := append([]string(nil), ids...)
	sort.Strings(current)
	sort.Strings(requested)
	for i := range current {
		if current[i] != requested[i] {
			return false
		}
	}
	return true
}

func patchItem(item *ItemDraft, patch ItemPatch) {
	if patch.Type != nil {
		item.Type = *patch.Type
	}
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Location != nil {
		item.Location = *patch.Location
	}
	if patch.DurationMin != nil {
		item.DurationMin = cloneInt(patch.DurationMin)
	}
	if patch.Source != nil {
		src := *patch.Source
		item.Source = &src
	}
}

func patchPreferences(prefs *TripPreferences, patch PreferencesPatch) {
	if patch.Origin != nil {
		prefs.Origin = *patch.Origin
	}
	if patch.Destination != nil {
		prefs.Destination = *patch.Destination
	}
	if patch.StartDate != nil {
		prefs.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		prefs.EndDate = *patch.EndDate
	}
	if patch.BudgetMin != nil {
		prefs.BudgetMin = cloneFloat(patch.BudgetMin)
	}
	if patch.BudgetMax != nil {
		prefs.BudgetMax = cloneFloat(patch.BudgetMax)
	}
	if patch.Currency != nil {
		prefs.Currency = *patch.Currency
	}
	if patch.Travelers != nil {
		prefs.Travelers = cloneInt(patch.Travelers)
	}
	if patch.Companion != nil {
		prefs.Companion = *patch.Companion
	}
	if patch.Pace != nil {
		prefs.Pace = *patch.Pace
	}
	if patch.TravelStyles != nil {
		prefs.TravelStyles = append([]string(nil), patch.TravelStyles...)
	}
	if patch.Notes != nil {
		prefs.Notes = *patch.Notes
	}
}

// normalizeDraft sorts days ascending by dayIndex and reassigns item
// positions sequentially from the current array order.
func normalizeDraft(draft *TripDraft) {
	sort.SliceStable(draft.Days, func(i, j int) bool {
		return draft.Days[i].DayIndex < draft.Days[j].DayIndex
	})
	for i := range draft.Days {
		for j := range draft.Days[i].Items {
			draft.Days[i].Items[j].Position = j + 1
		}
	}
}
