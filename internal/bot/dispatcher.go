package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
	"github.com/Proton-105/storefront-bot/internal/middleware"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// SessionMachine is the part of state.Machine the dispatcher drives.
type SessionMachine interface {
	Lock(ctx context.Context, chatID int64) (*state.Lease, error)
	Session(ctx context.Context, chatID int64) (state.Session, error)
	Commit(ctx context.Context, lease *state.Lease, from, to state.State, product string) error
}

// HandlerSet selects the handler of a state.
type HandlerSet interface {
	For(st state.State) (handlers.StateHandler, error)
}

// Dispatcher routes incoming updates to state-specific handlers and persists the outcome.
type Dispatcher struct {
	machine  SessionMachine
	handlers HandlerSet
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(machine SessionMachine, set HandlerSet, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		machine:  machine,
		handlers: set,
		log:      log,
	}
}

// Dispatch handles a telebot update.
func (d *Dispatcher) Dispatch(c telebot.Context) error {
	ev, ok := eventFromContext(c)
	if !ok {
		d.log.Warn("cannot dispatch update without chat")
		return nil
	}

	out := newResponder(c, d.log)
	st, err := d.Handle(updateContext(c), ev, out)
	if st != "" {
		c.Set(middleware.StateKey, string(st))
	}
	out.finish()

	return err
}

// Handle runs one event through the state machine. It returns the state the event was
// handled in. Nothing is written unless the handler succeeds.
func (d *Dispatcher) Handle(ctx context.Context, ev handlers.Event, out handlers.Responder) (state.State, error) {
	lease, err := d.machine.Lock(ctx, ev.ChatID)
	if err != nil {
		return "", err
	}
	defer lease.Release()

	session := state.Session{ChatID: ev.ChatID, NextState: state.StateStart}
	if !ev.IsStart() {
		session, err = d.machine.Session(ctx, ev.ChatID)
		if err != nil {
			return "", fmt.Errorf("load session: %w", err)
		}
	}

	handler, err := d.handlers.For(session.NextState)
	if err != nil {
		return session.NextState, err
	}

	res := handler.Handle(ctx, handlers.Request{Event: ev, Session: session}, out)
	if res.Err != nil {
		return session.NextState, fmt.Errorf("handle %s: %w", session.NextState, res.Err)
	}

	if err := d.machine.Commit(ctx, lease, session.NextState, res.Next, res.Product); err != nil {
		return session.NextState, fmt.Errorf("commit %s: %w", res.Next, err)
	}

	d.log.Debug("state changed",
		slog.Int64("chat_id", ev.ChatID),
		slog.String("from", string(session.NextState)),
		slog.String("to", string(res.Next)),
	)
	return session.NextState, nil
}
