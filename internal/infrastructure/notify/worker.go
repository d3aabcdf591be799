// Package notify turns domain events into outbound mail.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grainfield/orderflow/internal/domain/catalog"
	domorder "github.com/grainfield/orderflow/internal/domain/order"
	domoutbox "github.com/grainfield/orderflow/internal/domain/outbox"
	"github.com/grainfield/orderflow/internal/domain/payment"
)

// Worker subscribes to order and stock events and sends the corresponding
// mail. Failures are logged and swallowed; notification never fails a
// workflow step.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifier   payment.Notifier
	opsEmail   string
	log        *zap.Logger
}

func New(subscriber domoutbox.Subscriber, notifier payment.Notifier, opsEmail string, logger *zap.Logger) *Worker {
	return &Worker{
		subscriber: subscriber,
		notifier:   notifier,
		opsEmail:   opsEmail,
		log:        logger.With(zap.String("component", "notify_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderPaidEvent{}.EventName(), w.handleOrderPaid)
	w.subscriber.Subscribe(catalog.StockDepletedEvent{}.EventName(), w.handleStockDepleted)
}

func (w *Worker) handleOrderPaid(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderPaidEvent)
	if !ok {
		return nil
	}

	name := evt.PayerName
	if name == "" {
		name = evt.Email
	}
	subject := fmt.Sprintf("Payment received for order %s", evt.OrderID)
	body := fmt.Sprintf(
		"Hello %s,\n\nWe received your payment of %.2f for order %s.\nTransaction reference: %s\n\nYour order is now being processed.\n",
		name, evt.TotalPrice, evt.OrderID, evt.TransactionID,
	)

	if err := w.notifier.Send(ctx, evt.Email, subject, body); err != nil {
		w.log.Warn("payment_confirmation_mail_failed",
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
	}
	return nil
}

func (w *Worker) handleStockDepleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(catalog.StockDepletedEvent)
	if !ok || w.opsEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Restock alert: %s", evt.ProductID)
	body := fmt.Sprintf(
		"Product %s (%s) dropped below the reorder watermark.\nRemaining units: %d\nMinimum order is now: %d\n",
		evt.ProductID, evt.ProductName, evt.Remaining, evt.MinimumOrder,
	)

	if err := w.notifier.Send(ctx, w.opsEmail, subject, body); err != nil {
		w.log.Warn("restock_alert_mail_failed",
			zap.String("product_id", evt.ProductID),
			zap.Error(err),
		)
	}
	return nil
}
