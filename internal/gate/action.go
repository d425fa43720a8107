package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionManage Action = "manage"
	ActionDelete Action = "delete"
)

// Actions lists every known action in display order.
var Actions = []Action{ActionView, ActionCreate, ActionUpdate, ActionManage, ActionDelete}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}
