package mailer

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"foodorder/internal/models"
)

type fakePublisher struct {
	key  string
	body []byte
	err  error
}

func (p *fakePublisher) Publish(routingKey string, body []byte) error {
	p.key = routingKey
	p.body = body
	return p.err
}

type recordingMailer struct {
	sent []Message
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestLogMailer_Send(t *testing.T) {
	m := NewLogMailer()
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}))
	assert.Error(t, m.Send(context.Background(), Message{Subject: "nobody"}))
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host: "smtp.example.com", Port: 587,
		User: "bot", Password: "secret",
		From: "Food Delivery <no-reply@example.com>",
	})

	var raw bytes.Buffer
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		_, deadlineSet := ctx.Deadline()
		assert.True(t, deadlineSet)
		_, err := msg.WriteTo(&raw)
		return err
	}

	err := m.Send(context.Background(), Message{To: "c@example.com", Subject: "Café order", Body: "hello"})
	require.NoError(t, err)

	headers := raw.String()
	assert.Contains(t, headers, "no-reply@example.com")
	assert.Contains(t, headers, "c@example.com")
	assert.Contains(t, headers, "Subject: ")
	assert.NotContains(t, headers, "Subject: Café order", "non-ASCII subjects are encoded")
	assert.Contains(t, headers, "hello")
}

func TestSMTPMailer_SendFailureIsWrapped(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "x@example.com"})
	m.send = func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), Message{To: "c@example.com"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "c@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "c@example.com"}), context.Canceled)

	assert.Error(t, m.Send(context.Background(), Message{To: "not an address"}))
}

func TestSMTPMailer_StalledSendReturnsAtDeadline(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "x@example.com", Timeout: 100 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)
	m.send = func(context.Context, *mail.Msg) error {
		<-release
		return nil
	}

	start := time.Now()
	err := m.Send(context.Background(), Message{To: "c@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPMailer_SilentRelayTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accept connections and never send the SMTP greeting
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "x@example.com", Timeout: 200 * time.Millisecond})

	start := time.Now()
	err = m.Send(context.Background(), Message{To: "c@example.com", Subject: "hi", Body: "body"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueuedMailer_RoundTripThroughDeliveryHandler(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueuedMailer(pub)

	msg := Message{To: "ops@example.com", Subject: "New order", Body: "body"}
	require.NoError(t, q.Send(context.Background(), msg))
	assert.Equal(t, RoutingKey, pub.key)

	rec := &recordingMailer{}
	handle := DeliveryHandler(rec)
	require.NoError(t, handle(amqp.Delivery{Body: pub.body}))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, msg, rec.sent[0])

	assert.Error(t, handle(amqp.Delivery{Body: []byte("{not json")}))
}

func TestQueuedMailer_PublishError(t *testing.T) {
	q := NewQueuedMailer(&fakePublisher{err: errors.New("channel closed")})
	assert.Error(t, q.Send(context.Background(), Message{To: "a@example.com"}))
}

func TestTemplates(t *testing.T) {
	order := &models.Order{
		ID:     "o-1",
		UserID: "u-1",
		Items: []models.OrderItem{
			{Name: "Margherita", Quantity: 2, Price: decimal.NewFromInt(200)},
			{Name: "Cola", Quantity: 1, Price: decimal.NewFromInt(100)},
		},
		ShippingAddress: models.ShippingAddress{Address: "1 Main St", City: "Town", PostalCode: "12345"},
		PaymentMethod:   "COD",
		ItemsPrice:      decimal.NewFromInt(500),
		CancelReason:    "Out of stock",
	}

	placed := OrderPlaced("ops@example.com", order)
	assert.Equal(t, "ops@example.com", placed.To)
	assert.Contains(t, placed.Body, "2 x Margherita @ 200.00")
	assert.Contains(t, placed.Body, "Items price: 500.00")

	cancelled := OrderCancelled("c@example.com", "Ann", order)
	assert.Contains(t, cancelled.Body, "Reason: Out of stock")

	reset := PasswordReset("c@example.com", "123456", 10*time.Minute)
	assert.Contains(t, reset.Body, "123456")
	assert.Contains(t, reset.Body, "10 minutes")
}
