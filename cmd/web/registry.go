package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/survey/internal/errors"
)

var errNoActiveSession = errors.NewSentinel("no active session")

type registryEntry[T any] struct {
	mu       sync.Mutex
	session  T
	lastUsed time.Time
}

// registry holds the live design and survey sessions of all browsers. Sessions are single-owner, so every access to a
// session goes through its entry mutex.
type registry[T any] struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*registryEntry[T]
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		mu:      sync.Mutex{},
		entries: make(map[uuid.UUID]*registryEntry[T]),
	}
}

func (r *registry[T]) add(session T) uuid.UUID {
	key := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = &registryEntry[T]{
		mu:       sync.Mutex{},
		session:  session,
		lastUsed: time.Now(),
	}
	return key
}

// with runs fn on the session stored under key while holding the session's lock.
func (r *registry[T]) with(key string, fn func(session T) error) error {
	id, err := uuid.Parse(key)
	if err != nil {
		return errors.Wrap(errNoActiveSession, "parse session key")
	}
	r.mu.Lock()
	entry, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return errors.Wrap(errNoActiveSession, "lookup session", slog.String("key", key))
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastUsed = time.Now()
	return fn(entry.session)
}

func (r *registry[T]) remove(key string) {
	id, err := uuid.Parse(key)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// expire drops the sessions not used since before and returns how many were dropped.
func (r *registry[T]) expire(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, entry := range r.entries {
		// Sessions in use are by definition not idle.
		if !entry.mu.TryLock() {
			continue
		}
		idle := entry.lastUsed.Before(before)
		entry.mu.Unlock()
		if idle {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

func (r *registry[T]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sweepSessions drops design and survey sessions that have been idle for longer than lifetime until ctx is done.
func (app *application) sweepSessions(ctx context.Context, lifetime time.Duration) {
	interval := lifetime / 4 //nolint:mnd // sweep a few times per lifetime
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			before := now.Add(-lifetime)
			designs := app.designs.expire(before)
			surveys := app.surveys.expire(before)
			if designs+surveys > 0 {
				app.logger.LogAttrs(ctx, slog.LevelDebug, "expired idle sessions",
					slog.Int("designs", designs), slog.Int("surveys", surveys))
			}
		}
	}
}
