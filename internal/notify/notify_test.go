package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	tele "gopkg.in/telebot.v3"

	"uturn/internal/logger"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPNotifier_Send(t *testing.T) {
	ch := &fakeChannel{}
	n := NewAMQPNotifier(ch, "uturn.notifications", 0)

	msg := Message{
		Audience:   AudienceCustomer,
		Template:   TemplateTripOTP,
		Phone:      "+919800000000",
		TrackingID: "UT-1234ABCD",
		Params:     map[string]string{"otp": "004217"},
	}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if ch.exchange != "uturn.notifications" || ch.key != "notify.customer.trip_otp" {
		t.Errorf("Unexpected route %s / %s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.ContentType != "application/json" {
		t.Errorf("Unexpected publishing %+v", ch.msg)
	}
	var got Message
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("Body is not JSON: %v", err)
	}
	if got.Params["otp"] != "004217" || got.Phone != msg.Phone {
		t.Errorf("Unexpected body %+v", got)
	}
}

func TestAMQPNotifier_SendError(t *testing.T) {
	n := NewAMQPNotifier(&fakeChannel{err: amqp.ErrClosed}, "x", 0)
	if err := n.Send(context.Background(), Message{Template: TemplateTripStarted}); !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("Expected wrapped ErrClosed, got %v", err)
	}
}

type fakeBot struct {
	to   tele.Recipient
	text string
	sent int
}

func (f *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.to = to
	f.text, _ = what.(string)
	f.sent++
	return &tele.Message{}, nil
}

func TestTelegramNotifier_OpsOnly(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramNotifier(bot, -100123)

	n.Send(context.Background(), Message{Audience: AudienceCustomer, Template: TemplateTripOTP})
	if bot.sent != 0 {
		t.Fatal("Customer messages must not reach the ops chat")
	}

	err := n.Send(context.Background(), Message{
		Audience:   AudienceOps,
		Template:   TemplateDriverBlocked,
		TrackingID: "UT-00000001",
		Params:     map[string]string{"driver_id": "d1", "fare": "930"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if bot.to.Recipient() != "-100123" {
		t.Errorf("Unexpected recipient %s", bot.to.Recipient())
	}
	want := "[driver_blocked] UT-00000001\ndriver_id: d1\nfare: 930"
	if bot.text != want {
		t.Errorf("Unexpected alert text %q", bot.text)
	}
}

type failing struct{ err error }

func (f failing) Send(ctx context.Context, msg Message) error { return f.err }

type counting struct{ n int }

func (c *counting) Send(ctx context.Context, msg Message) error {
	c.n++
	return nil
}

func TestMulti_SendsToAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	c := &counting{}
	m := Multi{failing{errA}, c, failing{errB}, NewLogNotifier(logger.NewNop())}

	err := m.Send(context.Background(), Message{Template: TemplateTripStarted})
	if c.n != 1 {
		t.Errorf("Expected healthy notifier to be called once, got %d", c.n)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Expected both errors joined, got %v", err)
	}

	if err := (Multi{c}).Send(context.Background(), Message{}); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
