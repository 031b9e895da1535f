package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
	"github.com/wneessen/go-mail"
)

// RoutingKey is the broker routing key of queued mail.
const RoutingKey = "email.send"

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

// NewLogMailer creates a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send logs msg.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mail recipient is empty")
	}
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail (log transport)")
	logrus.Debug(msg.Body)
	return nil
}

// DefaultSMTPTimeout bounds one SMTP delivery when the config sets none.
const DefaultSMTPTimeout = 10 * time.Second

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer sends mail through an SMTP relay with PLAIN auth and
// opportunistic STARTTLS.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Send delivers msg. It returns once the relay accepts the message or when
// ctx or the configured timeout expires, whichever comes first.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mail recipient is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := m.build(msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.send(ctx, out) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return errors.Wrapf(err, "failed to send mail to %s", msg.To)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, errors.Wrapf(err, "invalid sender %q", m.cfg.From)
	}
	if err := out.To(msg.To); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient %q", msg.To)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to configure smtp client")
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Publisher is the subset of the broker client used to queue mail.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// QueuedMailer hands messages to the broker for asynchronous delivery.
type QueuedMailer struct {
	publisher Publisher
}

// NewQueuedMailer creates a QueuedMailer.
func NewQueuedMailer(publisher Publisher) *QueuedMailer {
	return &QueuedMailer{publisher: publisher}
}

// Send publishes msg under RoutingKey.
func (m *QueuedMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mail recipient is empty")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode mail")
	}
	return m.publisher.Publish(RoutingKey, body)
}

// DeliveryHandler returns a broker consumer that sends each queued message with m.
func DeliveryHandler(m Mailer) func(amqp.Delivery) error {
	return func(d amqp.Delivery) error {
		var msg Message
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return errors.Wrap(err, "malformed queued mail")
		}
		return m.Send(context.Background(), msg)
	}
}
