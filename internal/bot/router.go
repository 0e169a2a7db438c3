package bot

import (
	"context"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
)

// Router passes every update through the middleware chain to the dispatcher.
type Router struct {
	mu          sync.RWMutex
	dispatcher  *Dispatcher
	middlewares []handlers.Middleware
	baseCtx     context.Context
	log         *slog.Logger
}

// NewRouter builds a Router with an empty middleware chain.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		baseCtx:     context.Background(),
		log:         log,
	}
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetBaseContext sets the context every update context derives from.
func (r *Router) SetBaseContext(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseCtx = ctx
}

// Route directs the incoming update to the dispatcher.
func (r *Router) Route(c telebot.Context) error {
	if c == nil || r.dispatcher == nil {
		return nil
	}

	r.mu.RLock()
	base := r.baseCtx
	r.mu.RUnlock()
	setUpdateContext(c, base)

	return r.applyMiddlewares(r.dispatcher.Dispatch)(c)
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
