package state

import "fmt"

// State is a conversation state name as persisted in the session record.
type State string

const (
	// StateStart is the entry state forced by the /start command. It is never stored.
	StateStart State = "START"
	// StateMenu shows the product list.
	StateMenu State = "HANDLE_MENU"
	// StateDescription shows one product with quantity choices.
	StateDescription State = "HANDLE_DESCRIPTION"
	// StateCart shows the cart contents.
	StateCart State = "HANDLE_CART"
	// StateWaitingEmail waits for the customer's email address.
	StateWaitingEmail State = "WAITING_EMAIL"
	// StateEnd is terminal; only /start leaves it.
	StateEnd State = "END"
)

// States lists every member of the enum in flow order.
var States = []State{
	StateStart,
	StateMenu,
	StateDescription,
	StateCart,
	StateWaitingEmail,
	StateEnd,
}

// ParseState converts a stored name into a State, rejecting anything outside the enum.
func ParseState(name string) (State, error) {
	for _, s := range States {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, name)
}

func (s State) String() string {
	return string(s)
}

// Session is the persisted conversation record of one chat.
type Session struct {
	ChatID         int64
	NextState      State
	CurrentProduct string
}
