package auth

import (
	"context"
	"log"
	"time"

	"github.com/caloriescount/auth-service/internal/domain"
	"github.com/caloriescount/auth-service/pkg/rabbitmq"
)

// ChallengeNotifier delivers a freshly issued verification code to the user
// over an out-of-band channel. The code is never placed in an HTTP response;
// this seam is the only way it reaches the user. Swapping in email or SMS
// delivery means implementing this interface, not touching the service.
type ChallengeNotifier interface {
	Notify(ctx context.Context, username, code string, expiresAt time.Time) error
}

// LogNotifier writes the code to the server log. This mirrors the delivery
// channel of the original deployment and is always wired as a fallback.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, username, code string, expiresAt time.Time) error {
	log.Printf("====================================")
	log.Printf("VERIFICATION CODE for %s: %s", username, code)
	log.Printf("Valid until %s", expiresAt.Format(time.RFC3339))
	log.Printf("====================================")
	return nil
}

const (
	// AuthEventsExchange is the topic exchange all auth events are published to.
	AuthEventsExchange = "auth_events"

	otpIssuedRoutingKey = "auth.otp.issued"
)

// EventNotifier publishes the code to RabbitMQ for a downstream delivery
// worker (email/SMS) to pick up.
type EventNotifier struct {
	publisher rabbitmq.Publisher
}

func NewEventNotifier(publisher rabbitmq.Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (n *EventNotifier) Notify(ctx context.Context, username, code string, expiresAt time.Time) error {
	return n.publisher.Publish(ctx, AuthEventsExchange, otpIssuedRoutingKey, domain.OTPIssuedEvent{
		Username:  username,
		Code:      code,
		ExpiresAt: expiresAt,
	})
}

// MultiNotifier fans a code out to several channels. Failures past the first
// notifier are logged and swallowed: as long as one channel delivered, the
// user can complete the login.
type MultiNotifier []ChallengeNotifier

func (m MultiNotifier) Notify(ctx context.Context, username, code string, expiresAt time.Time) error {
	var first error
	delivered := false
	for _, n := range m {
		if err := n.Notify(ctx, username, code, expiresAt); err != nil {
			log.Printf("challenge notifier %T failed for %s: %v", n, username, err)
			if first == nil {
				first = err
			}
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return first
}
