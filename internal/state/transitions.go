package state

// validTransitions lists, per state, the states its handler may move to.
var validTransitions = map[State][]State{
	StateStart: {
		StateMenu,
	},
	StateMenu: {
		StateCart,
		StateDescription,
	},
	StateDescription: {
		StateMenu,
		StateDescription,
	},
	StateCart: {
		StateMenu,
		StateWaitingEmail,
		StateCart,
	},
	StateWaitingEmail: {
		StateEnd,
		StateWaitingEmail,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
