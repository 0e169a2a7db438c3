package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSessionNotFound indicates that the chat has no stored state.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFieldNotFound indicates that a session field is absent.
	ErrFieldNotFound = errors.New("session field not found")
	// ErrUnknownState indicates a stored state name outside the enum.
	ErrUnknownState = errors.New("unknown state")
	// ErrStateLocked indicates that another update for the chat is still being processed.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Options tunes the per-chat lock.
type Options struct {
	LockTTL  time.Duration
	LockWait time.Duration
}

// Machine loads sessions, validates transitions and serializes updates per chat.
type Machine struct {
	storage  Storage
	log      *slog.Logger
	lockTTL  time.Duration
	lockWait time.Duration
}

// NewMachine creates a state machine on top of storage.
func NewMachine(storage Storage, log *slog.Logger, opts Options) *Machine {
	if log == nil {
		log = slog.Default()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.LockWait <= 0 {
		opts.LockWait = defaultLockWait
	}

	return &Machine{
		storage:  storage,
		log:      log,
		lockTTL:  opts.LockTTL,
		lockWait: opts.LockWait,
	}
}

// Session loads the chat's record. A missing or unrecognized next_state is an error.
func (m *Machine) Session(ctx context.Context, chatID int64) (Session, error) {
	raw, err := m.storage.GetField(ctx, chatID, FieldNextState)
	if err != nil {
		if errors.Is(err, ErrFieldNotFound) {
			return Session{}, apperrors.NewStateError("no session for chat", ErrSessionNotFound)
		}
		return Session{}, err
	}

	next, err := ParseState(raw)
	if err != nil {
		m.log.Error("stored state is not recognized", "chat_id", chatID, "state", raw)
		return Session{}, apperrors.NewStateError("corrupt session", err)
	}

	product, err := m.storage.GetField(ctx, chatID, FieldCurrentProduct)
	if err != nil && !errors.Is(err, ErrFieldNotFound) {
		return Session{}, err
	}

	return Session{
		ChatID:         chatID,
		NextState:      next,
		CurrentProduct: product,
	}, nil
}

// Commit persists the outcome of a handled event: next_state and, when set, current_product.
// The write only lands while lease still holds the chat's lock.
func (m *Machine) Commit(ctx context.Context, lease *Lease, from, to State, product string) error {
	if lease == nil {
		return apperrors.NewStateError("commit without session lock", ErrStateLocked)
	}

	chatID := lease.chatID
	if !IsTransitionAllowed(from, to) {
		m.log.Warn("invalid state transition", "chat_id", chatID, "from", from, "to", to)
		return apperrors.NewStateError(fmt.Sprintf("transition %s -> %s", from, to), ErrInvalidTransition)
	}

	fields := map[string]string{FieldNextState: string(to)}
	if product != "" {
		fields[FieldCurrentProduct] = product
	}

	if err := m.storage.SetFields(ctx, chatID, lease.token, fields); err != nil {
		return err
	}

	transitionRecorder(string(from), string(to))
	return nil
}

// Lock blocks until the chat's lock is held or the wait budget runs out.
// The lock is renewed in the background until the lease is released.
func (m *Machine) Lock(ctx context.Context, chatID int64) (*Lease, error) {
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, m.lockWait)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := m.storage.TryLock(waitCtx, chatID, token, m.lockTTL)
		if err != nil {
			m.log.Error("failed to acquire session lock", "chat_id", chatID, "error", err)
			return nil, err
		}
		if acquired {
			break
		}

		select {
		case <-waitCtx.Done():
			m.log.Warn("session lock already held", "chat_id", chatID)
			return nil, apperrors.NewStateError("chat busy", ErrStateLocked)
		case <-ticker.C:
		}
	}

	lease := &Lease{
		machine: m,
		chatID:  chatID,
		token:   token,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go lease.heartbeat(context.WithoutCancel(ctx))

	return lease, nil
}

// Lease is a held per-chat lock.
type Lease struct {
	machine *Machine
	chatID  int64
	token   string

	stop chan struct{}
	done chan struct{}
	once sync.Once
	lost atomic.Bool
}

// Lost reports whether the lock expired or was taken over while held.
func (l *Lease) Lost() bool {
	return l.lost.Load()
}

// Release stops renewal and deletes the lock if it is still ours. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done

		m := l.machine
		ctx, cancel := context.WithTimeout(context.Background(), m.lockWait)
		defer cancel()

		if err := m.storage.Unlock(ctx, l.chatID, l.token); err != nil {
			m.log.Error("failed to release session lock", "chat_id", l.chatID, "error", err)
		}
	})
}

// heartbeat renews the TTL every third of it until Release or until ownership is gone.
func (l *Lease) heartbeat(ctx context.Context) {
	defer close(l.done)

	m := l.machine
	ticker := time.NewTicker(m.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}

		renewCtx, cancel := context.WithTimeout(ctx, m.lockTTL/3)
		renewed, err := m.storage.RefreshLock(renewCtx, l.chatID, l.token, m.lockTTL)
		cancel()

		if err != nil {
			m.log.Warn("failed to renew session lock", "chat_id", l.chatID, "error", err)
			continue
		}
		if !renewed {
			l.lost.Store(true)
			m.log.Warn("session lock lost while held", "chat_id", l.chatID)
			return
		}
	}
}

// Sessions returns every stored session.
func (m *Machine) Sessions(ctx context.Context) ([]Session, error) {
	return m.storage.Sessions(ctx)
}
