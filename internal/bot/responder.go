package bot

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
)

// responder sends handler output through telebot.
type responder struct {
	c        telebot.Context
	log      *slog.Logger
	answered bool
}

func newResponder(c telebot.Context, log *slog.Logger) *responder {
	return &responder{c: c, log: log}
}

func (r *responder) Send(v view.View) error {
	opts := &telebot.SendOptions{
		ParseMode:   v.ParseMode,
		ReplyMarkup: v.Markup,
	}

	if v.PhotoURL != "" {
		photo := &telebot.Photo{File: telebot.FromURL(v.PhotoURL), Caption: v.Text}
		return r.c.Send(photo, opts)
	}
	return r.c.Send(v.Text, opts)
}

func (r *responder) Delete() error {
	return r.c.Delete()
}

func (r *responder) Alert(text string) error {
	r.answered = true
	return r.c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
}

// finish stops the client's loading indicator on button presses that got no alert.
func (r *responder) finish() {
	if r.answered || r.c.Callback() == nil {
		return
	}

	if err := r.c.Respond(); err != nil {
		r.log.Debug("failed to answer callback", slog.Any("error", err))
	}
}
