package bot

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
)

const contextKey = "ctx"

// eventFromContext extracts the fields the handlers use from a telebot update.
func eventFromContext(c telebot.Context) (handlers.Event, bool) {
	if c == nil || c.Chat() == nil {
		return handlers.Event{}, false
	}

	ev := handlers.Event{ChatID: c.Chat().ID}
	if msg := c.Message(); msg != nil {
		ev.MessageID = msg.ID
	}

	if cb := c.Callback(); cb != nil {
		ev.Callback = true
		ev.Data = cb.Data
	} else {
		ev.Text = c.Text()
	}

	if sender := c.Sender(); sender != nil {
		ev.Username = sender.Username
		ev.FirstName = sender.FirstName
		ev.LastName = sender.LastName
	}

	return ev, true
}

// updateContext returns the context stored on the update, or a background one.
func updateContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func setUpdateContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}
