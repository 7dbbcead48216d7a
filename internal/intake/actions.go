package intake

import "scrumbot/internal/models"

// ActionKind is what an action does when chosen.
type ActionKind string

const (
	ActionAccept   ActionKind = "accept"
	ActionDecline  ActionKind = "decline"
	ActionNavigate ActionKind = "navigate"
	ActionRephrase ActionKind = "rephrase"
)

// RouteStandups is the logs view of the web dashboard.
const RouteStandups = "/standups"

const MsgRephrase = "Couldn’t determine intent. Try rephrasing your message."

// Action is one next step offered to the user. Route is set for navigation.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Route string     `json:"route,omitempty"`
}

// ActionsFor maps an interpreted intent to the actions offered for it.
func ActionsFor(intent models.Intent) []Action {
	switch intent {
	case models.IntentLogUpdate:
		return []Action{
			{Kind: ActionAccept, Label: "Save to Database"},
			{Kind: ActionDecline, Label: "Cancel"},
		}
	case models.IntentQueryUpdate:
		return []Action{{Kind: ActionNavigate, Label: "View Logs", Route: RouteStandups}}
	case models.IntentUpdateEntry:
		return []Action{{Kind: ActionNavigate, Label: "Edit Standup", Route: RouteStandups}}
	default:
		return []Action{{Kind: ActionRephrase, Label: MsgRephrase}}
	}
}

// SavedActions are offered once a standup has been stored.
func SavedActions() []Action {
	return []Action{{Kind: ActionNavigate, Label: "View / Edit Standup", Route: RouteStandups}}
}

// Find returns the first action of the given kind.
func Find(actions []Action, kind ActionKind) (Action, bool) {
	for _, a := range actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}
