package event

import (
	"fmt"
	"strings"
)

// Action is the kind of change a SyncEvent applies remotely.
type Action string

const (
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Actions lists every valid action.
var Actions = []Action{Create, Update, Delete}

// ParseAction parses an action name, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q: must be one of create, update, delete", s)
	}
	return a, nil
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case Create, Update, Delete:
		return true
	}
	return false
}

// RequiresRemoteID reports whether the action targets an existing remote
// object and therefore needs its Salesforce id.
func (a Action) RequiresRemoteID() bool {
	return a == Update || a == Delete
}

func (a Action) String() string {
	return string(a)
}
