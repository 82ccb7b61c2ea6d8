package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/simp-lee/logger"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// SubscriberConfig selects what the subscriber listens to.
type SubscriberConfig struct {
	Subject string
	// QueueGroup spreads events across replicas; empty means every replica
	// sees every event.
	QueueGroup string
	// HandlerTimeout bounds a single handler invocation. Zero means no limit.
	HandlerTimeout time.Duration
}

// Subscriber feeds CloudEvents from a NATS subject into a Registry.
type Subscriber struct {
	nc       *nats.Conn
	registry *Registry
	cfg      SubscriberConfig
	log      *slog.Logger
	sub      *nats.Subscription

	closed     chan struct{}
	closedOnce sync.Once
}

// NewSubscriber creates a Subscriber and takes over the connection's closed
// callback. Call Start to begin receiving.
func NewSubscriber(nc *nats.Conn, registry *Registry, cfg SubscriberConfig, log *slog.Logger) *Subscriber {
	s := &Subscriber{nc: nc, registry: registry, cfg: cfg, log: log, closed: make(chan struct{})}
	if nc != nil {
		nc.SetClosedHandler(func(*nats.Conn) {
			s.log.Info("nats connection closed")
			s.closedOnce.Do(func() { close(s.closed) })
		})
	}
	return s
}

// Start subscribes to the configured subject.
func (s *Subscriber) Start() error {
	if s.cfg.Subject == "" {
		return errors.New("events subject is empty")
	}

	var (
		sub *nats.Subscription
		err error
	)
	if s.cfg.QueueGroup != "" {
		sub, err = s.nc.QueueSubscribe(s.cfg.Subject, s.cfg.QueueGroup, s.handle)
	} else {
		sub, err = s.nc.Subscribe(s.cfg.Subject, s.handle)
	}
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", s.cfg.Subject, err)
	}
	s.sub = sub

	s.log.Info("event subscriber started",
		slog.String("subject", s.cfg.Subject),
		slog.String("queue_group", s.cfg.QueueGroup),
	)
	return nil
}

// handle decodes one message and dispatches it. Malformed messages and
// handler failures are logged and dropped; nothing is redelivered.
func (s *Subscriber) handle(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))

	ev, err := Decode(msg.Data)
	if err != nil {
		s.log.WarnContext(ctx, "dropping malformed event",
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)
		return
	}

	ctx = logger.WithContextAttrs(ctx, slog.String("event_id", ev.ID))
	if s.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HandlerTimeout)
		defer cancel()
	}

	handled, err := s.registry.Dispatch(ctx, ev)
	switch {
	case err != nil:
		s.log.ErrorContext(ctx, "event handler failed",
			slog.String("source", ev.Source),
			slog.String("type", ev.Type),
			slog.Any("error", err),
		)
	case !handled:
		s.log.DebugContext(ctx, "no handler for event",
			slog.String("source", ev.Source),
			slog.String("type", ev.Type),
		)
	}
}

// Drain stops receiving, lets in-flight handlers finish and closes the
// connection. It returns once the closed callback has run or ctx is done.
func (s *Subscriber) Drain(ctx context.Context) error {
	if s.nc == nil || s.nc.IsClosed() {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		return fmt.Errorf("drain nats connection: %w", err)
	}

	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		s.nc.Close()
		return ctx.Err()
	}
}

// Connect dials NATS with reconnects enabled and connection state changes
// logged.
func Connect(url, name string, log *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Connected reports whether the underlying NATS connection is up.
func (s *Subscriber) Connected() bool {
	return s.nc != nil && s.nc.IsConnected()
}
