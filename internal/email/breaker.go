package email

import (
	"context"
	"time"

	"hvac_dispatch_backend/platform/logger"

	"github.com/sony/gobreaker"
)

const breakerConsecutiveFailures = 3

// BreakerSender stops hammering an SMTP server that keeps failing. While the
// breaker is open every send fails fast with gobreaker.ErrOpenState.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSender wraps next. timeout is how long the breaker stays open
// before letting a probe through.
func NewBreakerSender(next Sender, timeout time.Duration, log *logger.Logger) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn("email circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	}
	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerSender) SendJobReportEmail(ctx context.Context, toEmail string, report JobReport) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SendJobReportEmail(ctx, toEmail, report)
	})
	return err
}

func (b *BreakerSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SendCustomEmail(ctx, toEmail, subject, htmlContent)
	})
	return err
}

var _ Sender = (*BreakerSender)(nil)
