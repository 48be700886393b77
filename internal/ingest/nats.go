package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSSubscriber listens on "<prefix>.devices.*.status"
type NATSSubscriber struct {
	nc      *nats.Conn
	prefix  string
	handler *Handler
	subs    []*nats.Subscription
}

func NewNATSSubscriber(nc *nats.Conn, subjectPrefix string, handler *Handler) *NATSSubscriber {
	return &NATSSubscriber{nc: nc, prefix: subjectPrefix, handler: handler}
}

// Subject is the subscription subject
func (s *NATSSubscriber) Subject() string {
	if s.prefix == "" {
		return "devices.*.status"
	}
	return s.prefix + ".devices.*.status"
}

// Start subscribes and blocks until ctx is done
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(s.Subject(), func(msg *nats.Msg) {
		s.handler.Handle(ctx, "nats", deviceIDFromSubject(msg.Subject), msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe device status: %w", err)
	}
	s.subs = append(s.subs, sub)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Str("subject", s.Subject()).
		Msg("NATS status subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// deviceIDFromSubject returns the token before the trailing "status"
func deviceIDFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) < 3 || parts[len(parts)-1] != "status" {
		return ""
	}
	return parts[len(parts)-2]
}
