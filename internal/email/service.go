package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/pkg/circuitbreaker"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to, patientName, providerName string, start, end time.Time, tz string) error
	SendCustom(ctx context.Context, to, subject, body string) error
}

type service struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.CircuitBreaker
}

func NewService(cfg config.SMTPConfig) Service {
	return &service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		// A dead SMTP server should not hold a goroutine per booking.
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     time.Minute,
		}),
	}
}

func (s *service) SendBookingConfirmation(ctx context.Context, to, patientName, providerName string, start, end time.Time, tz string) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s is confirmed for %s, %s to %s (%s).\n\nPlease arrive 10 minutes early.\n",
		patientName,
		providerName,
		start.In(loc).Format("Monday, January 2 2006"),
		start.In(loc).Format("15:04"),
		end.In(loc).Format("15:04"),
		tz,
	)
	return s.SendCustom(ctx, to, "Appointment confirmation", body)
}

func (s *service) SendCustom(_ context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	err := s.breaker.Execute(func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
