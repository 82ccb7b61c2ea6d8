package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errMissingRoute = errors.New("cloud event needs both source and type")

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev CloudEvent) error

type routeKey struct {
	source string
	typ    string
}

// Registry maps (source, type) pairs to handlers. It is populated at startup
// and read concurrently by the subscriber.
type Registry struct {
	mu       sync.RWMutex
	handlers map[routeKey]HandlerFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[routeKey]HandlerFunc)}
}

// Register binds h to events with the given source and type. Registering the
// same pair twice is an error.
func (r *Registry) Register(source, typ string, h HandlerFunc) error {
	if source == "" || typ == "" {
		return errMissingRoute
	}
	if h == nil {
		return fmt.Errorf("handler for %s/%s is nil", source, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := routeKey{source: source, typ: typ}
	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("handler for %s/%s already registered", source, typ)
	}
	r.handlers[key] = h
	return nil
}

// Dispatch runs the handler registered for ev. handled is false when no
// handler matches.
func (r *Registry) Dispatch(ctx context.Context, ev CloudEvent) (handled bool, err error) {
	r.mu.RLock()
	h, ok := r.handlers[routeKey{source: ev.Source, typ: ev.Type}]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, h(ctx, ev)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// RegisterDefaults installs the handlers the service ships with.
func RegisterDefaults(r *Registry, log *slog.Logger) error {
	return r.Register(SourceWeb, TypeStudioOpened, StudioOpened(log))
}

// StudioOpened logs each studio-opened event.
func StudioOpened(log *slog.Logger) HandlerFunc {
	return func(ctx context.Context, ev CloudEvent) error {
		log.InfoContext(ctx, "event received",
			slog.String("event_id", ev.ID),
			slog.String("source", ev.Source),
			slog.String("type", ev.Type),
			slog.String("client_id", ev.ClientID),
			slog.String("session_id", ev.SessionID),
			slog.Int("data_bytes", len(ev.Data)),
		)
		return nil
	}
}
