// Package travel contains the pure planning core: the trip workflow state
// machine, the draft reducer that applies structured edit actions, the
// snapshot projection, and the rule-based assistant orchestrator. Nothing in
// this package touches the database; persistence is layered on top by the
// services package.
package travel

// TripState is one of the five lifecycle stages a trip moves through while
// it is being planned. The set is closed; transition legality is defined by
// the table below.
type TripState string

const (
	StateDiscovery    TripState = "DISCOVERY"
	StateSelection    TripState = "SELECTION"
	StatePlanning     TripState = "PLANNING"
	StateRefinement   TripState = "REFINEMENT"
	StateFinalization TripState = "FINALIZATION"
)

// stateOrder fixes the display order of states; it does not imply that
// transitions are only legal between neighbours.
var stateOrder = []TripState{
	StateDiscovery,
	StateSelection,
	StatePlanning,
	StateRefinement,
	StateFinalization,
}

// transitions is the directed legality table. A pair not listed here is an
// illegal transition; self-transitions are always allowed and handled in
// IsValidTransition directly.
var transitions = map[TripState][]TripState{
	StateDiscovery:    {StateSelection, StatePlanning},
	StateSelection:    {StateDiscovery, StatePlanning},
	StatePlanning:     {StateSelection, StateRefinement, StateFinalization},
	StateRefinement:   {StatePlanning, StateFinalization},
	StateFinalization: {StateRefinement},
}

// DefaultTripState returns the state every new trip starts in.
func DefaultTripState() TripState { return StateDiscovery }

// IsValidTransition reports whether moving from one state to another is
// legal. Staying in the same state is always legal.
func IsValidTransition(from, to TripState) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NormalizeTripState coerces an arbitrary stored or client-supplied value to
// a valid state, falling back to the default for anything unrecognized. It
// never fails; use it when decoding externally supplied state.
func NormalizeTripState(value string) TripState {
	for _, s := range stateOrder {
		if TripState(value) == s {
			return s
		}
	}
	return DefaultTripState()
}

// TripStates returns the states in display order.
func TripStates() []TripState {
	out := make([]TripState, len(stateOrder))
	copy(out, stateOrder)
	return out
}

// StateGuidance maps a state to the instruction the assistant orchestrator
// follows while the trip is in that state. Always non-empty.
func StateGuidance(state TripState) string {
	switch state {
	case StateDiscovery:
		return "Run discovery: preferences, budget, dates, origin, travel companions, pace and constraints."
	case StateSelection:
		return "Drive destination selection with objective comparisons and trade-offs."
	case StatePlanning:
		return "Build a day-by-day itinerary with ordered items and estimated durations."
	case StateRefinement:
		return "Optimize the route: balance pace, cost, transfers and conflicts."
	case StateFinalization:
		return "Close the final checklist: bookings, documents, logistics and open points."
	default:
		return "Advance the travel plan incrementally."
	}
}
