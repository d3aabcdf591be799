package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grainfield/orderflow/internal/domain/catalog"
	domorder "github.com/grainfield/orderflow/internal/domain/order"
	domoutbox "github.com/grainfield/orderflow/internal/domain/outbox"
)

type fakeSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *fakeSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]domoutbox.Handler)
	}
	s.handlers[name] = h
}

type sentMail struct{ to, subject, body string }

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return n.err
}

func TestWorkerSendsPaymentConfirmation(t *testing.T) {
	sub := &fakeSubscriber{}
	notifier := &fakeNotifier{}
	New(sub, notifier, "ops@wholesale.example", zap.NewNop()).Start()

	h := sub.handlers[domorder.OrderPaidEvent{}.EventName()]
	require.NotNil(t, h)

	err := h(context.Background(), domorder.OrderPaidEvent{
		OrderID:       "o1",
		Email:         "buyer@example.com",
		PayerName:     "Ada",
		TransactionID: "tx-1",
		TotalPrice:    99.5,
	})

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "buyer@example.com", notifier.sent[0].to)
	assert.Contains(t, notifier.sent[0].subject, "o1")
	assert.Contains(t, notifier.sent[0].body, "tx-1")
	assert.Contains(t, notifier.sent[0].body, "Ada")
}

func TestWorkerSwallowsSendFailure(t *testing.T) {
	sub := &fakeSubscriber{}
	notifier := &fakeNotifier{err: errors.New("mail api down")}
	New(sub, notifier, "", zap.NewNop()).Start()

	h := sub.handlers[domorder.OrderPaidEvent{}.EventName()]
	require.NotNil(t, h)

	err := h(context.Background(), domorder.OrderPaidEvent{OrderID: "o1", Email: "buyer@example.com"})
	assert.NoError(t, err, "notification failure must not surface")
}

func TestWorkerSendsRestockAlert(t *testing.T) {
	sub := &fakeSubscriber{}
	notifier := &fakeNotifier{}
	New(sub, notifier, "ops@wholesale.example", zap.NewNop()).Start()

	h := sub.handlers[catalog.StockDepletedEvent{}.EventName()]
	require.NotNil(t, h)

	err := h(context.Background(), catalog.StockDepletedEvent{
		ProductID: "p1", ProductName: "pallet", Remaining: 800, MinimumOrder: 800,
	})

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ops@wholesale.example", notifier.sent[0].to)
}

func TestWorkerSkipsRestockAlertWithoutOpsEmail(t *testing.T) {
	sub := &fakeSubscriber{}
	notifier := &fakeNotifier{}
	New(sub, notifier, "", zap.NewNop()).Start()

	h := sub.handlers[catalog.StockDepletedEvent{}.EventName()]
	require.NotNil(t, h)

	require.NoError(t, h(context.Background(), catalog.StockDepletedEvent{ProductID: "p1"}))
	assert.Empty(t, notifier.sent)
}
