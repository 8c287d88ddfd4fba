package travel

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// AssistantEnvelope is the contract between the rule-based assistant and the
// action pipeline: a reply for the user plus the structured edits the
// assistant suggests, tagged with a fresh client operation id so the apply
// call is retry-safe end to end.
type AssistantEnvelope struct {
	AssistantMessage  string    `json:"assistant_message"`
	TripStateNext     TripState `json:"trip_state_next"`
	Actions           []Action  `json:"actions"`
	ClientOperationID string    `json:"client_operation_id"`
}

// newOperationID generates envelope operation ids; swappable in tests.
var newOperationID = uuid.NewString

// itineraryKeywords and budgetKeywords drive the intent heuristics. The
// Portuguese terms mirror the product's original audience.
var (
	itineraryKeywords = []string{"itinerary", "day", "roteiro", "dia"}
	budgetKeywords    = []string{"budget", "cost", "orçamento", "orcamento"}
)

const maxNoteRunes = 2000

// BuildAssistantEnvelope derives a reply and a suggested action batch from a
// free-text user message and the trip's current workflow state. It is a
// deliberately simple keyword stub standing in for a real language model;
// the rest of the system depends only on the envelope contract.
func BuildAssistantEnvelope(message string, currentState TripState) AssistantEnvelope {
	state := NormalizeTripState(string(currentState))
	guidance := StateGuidance(state)
	lowered := strings.ToLower(message)

	containsAny := func(keywords []string) bool {
		return lo.SomeBy(keywords, func(kw string) bool {
			return strings.Contains(lowered, kw)
		})
	}

	env := AssistantEnvelope{
		TripStateNext:     state,
		ClientOperationID: newOperationID(),
		AssistantMessage:  "Understood. " + guidance + " I will structure the next planning step.",
	}

	switch {
	case containsAny(itineraryKeywords):
		if state == StateDiscovery {
			env.TripStateNext = StatePlanning
		}
		duration := 120
		env.Actions = []Action{
			mustAction(ActionCreateDay, CreateDayPayload{DayIndex: 1}),
			mustAction(ActionAddItem, AddItemPayload{Item: ItemInput{
				Type:        ItemAttraction,
				Title:       "Suggested starting point",
				Description: "Automatically generated first stop to kick off the itinerary.",
				DayIndex:    1,
				DurationMin: &duration,
			}}),
		}
		env.AssistantMessage = "I added a suggested starting point on day 1. Tell me your preferences and I will refine it."

	case containsAny(budgetKeywords):
		if state == StateDiscovery {
			env.TripStateNext = StateSelection
		}
		currency := "USD"
		env.Actions = []Action{
			mustAction(ActionUpdateBudget, UpdateBudgetPayload{Currency: &currency}),
		}
		env.AssistantMessage = "Got it. I recorded the budget context and will adapt the next suggestions to it."

	default:
		notes := clipRunes(message, maxNoteRunes)
		env.Actions = []Action{
			mustAction(ActionUpdatePreferences, UpdatePreferencesPayload{
				Patch: PreferencesPatch{Notes: &notes},
			}),
		}
	}

	return env
}

// mustAction marshals a payload struct into an Action. Payload shapes are
// defined in this package, so marshaling cannot fail at runtime.
func mustAction(t ActionType, payload any) Action {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Action{Type: t, Payload: raw}
}

func clipRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
