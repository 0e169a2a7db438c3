package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// ErrNoHandler is returned for states that accept no events.
var ErrNoHandler = errors.New("no handler for state")

// Set holds one handler per conversation state.
type Set struct {
	start       StateHandler
	menu        StateHandler
	description StateHandler
	cart        StateHandler
	email       StateHandler
}

// NewSet wires the state handlers to the commerce client.
func NewSet(c Commerce, log *slog.Logger) *Set {
	if log == nil {
		log = slog.Default()
	}

	s := &shop{commerce: c, log: log}
	return &Set{
		start:       &StartHandler{shop: s},
		menu:        &MenuHandler{shop: s},
		description: &DescriptionHandler{shop: s},
		cart:        &CartHandler{shop: s},
		email:       &EmailHandler{shop: s},
	}
}

// For selects the handler of st.
func (s *Set) For(st state.State) (StateHandler, error) {
	switch st {
	case state.StateStart:
		return s.start, nil
	case state.StateMenu:
		return s.menu, nil
	case state.StateDescription:
		return s.description, nil
	case state.StateCart:
		return s.cart, nil
	case state.StateWaitingEmail:
		return s.email, nil
	case state.StateEnd:
		return nil, apperrors.NewStateError("conversation has ended", ErrNoHandler)
	}

	return nil, apperrors.NewStateError(fmt.Sprintf("state %q", st), ErrNoHandler)
}
