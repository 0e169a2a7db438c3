package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// Handler processes a raw telebot update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Event is one inbound chat update reduced to what the state handlers need.
type Event struct {
	ChatID    int64
	MessageID int
	// Text is set for plain messages.
	Text string
	// Data is the payload of a pressed inline button.
	Data     string
	Callback bool

	Username  string
	FirstName string
	LastName  string
}

// IsStart reports whether the event is the /start command.
func (e Event) IsStart() bool {
	if e.Callback {
		return false
	}

	command, _, _ := strings.Cut(strings.TrimSpace(e.Text), " ")
	command, _, _ = strings.Cut(command, "@")
	return command == "/start"
}

// Request is what a state handler is invoked with.
type Request struct {
	Event   Event
	Session state.Session
}

// Result is the outcome of a state handler. Err set means nothing is persisted.
type Result struct {
	Next    state.State
	Product string
	Err     error
}

func next(s state.State) Result {
	return Result{Next: s}
}

func fail(err error) Result {
	return Result{Err: err}
}

// Responder delivers output to the chat the event came from.
type Responder interface {
	Send(v view.View) error
	// Delete removes the message whose button triggered the event.
	Delete() error
	Alert(text string) error
}

// StateHandler handles events for one conversation state.
type StateHandler interface {
	Handle(ctx context.Context, req Request, out Responder) Result
}

// Commerce is the part of the commerce client the handlers use.
type Commerce interface {
	Products(ctx context.Context) ([]commerce.Product, error)
	Product(ctx context.Context, id string) (commerce.Product, error)
	FileURL(ctx context.Context, fileID string) (string, error)
	Cart(ctx context.Context, ref string) (commerce.Cart, error)
	AddToCart(ctx context.Context, ref, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, ref, itemID string) error
	CreateCustomer(ctx context.Context, name, email string) error
}
