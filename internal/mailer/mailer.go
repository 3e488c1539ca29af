package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("mail has no recipients")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends through SMTP behind a circuit breaker. Without credentials
// it is disabled and only logs what it would have sent.
type Mailer struct {
	sender Sender
	from   string
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func New(cfg Config) *Mailer {
	if cfg.Username == "" || cfg.Password == "" {
		log.Println("smtp credentials are not set, mail delivery is disabled")
		return NewWithSender(nil, cfg.From)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), from)
}

func NewWithSender(sender Sender, from string) *Mailer {
	if from == "" {
		from = "noreply@roadstartire.com"
	}
	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %v changed from %v to %v", name, from, to)
		},
	}
	return &Mailer{
		sender: sender,
		from:   from,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (m *Mailer) Enabled() bool {
	return m.sender != nil
}

// Send returns gobreaker.ErrOpenState while the SMTP server is considered down.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.Enabled() {
		log.Printf("mail delivery disabled, would send %q to %v", msg.Subject, msg.To)
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.sender.DialAndSend(gm)
	})
	if err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}
