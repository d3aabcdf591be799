package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grainfield/orderflow/internal/domain/payment"
)

const sendTimeout = 10 * time.Second

type message struct {
	to      string
	subject string
	body    string
}

// Dispatcher moves mail delivery off the request path. Enqueueing never
// blocks: when the buffer is full the message is dropped with a log entry.
// Delivery failures are logged and swallowed.
type Dispatcher struct {
	sender payment.Notifier
	inbox  chan message
	done   chan struct{}
	log    *zap.Logger
}

func NewDispatcher(sender payment.Notifier, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		sender: sender,
		inbox:  make(chan message, buffer),
		done:   make(chan struct{}),
		log:    logger.With(zap.String("component", "mail_dispatcher")),
	}
}

func (d *Dispatcher) Start() {
	go d.loop()
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for m := range d.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sender.Send(ctx, m.to, m.subject, m.body); err != nil {
			d.log.Warn("mail_send_failed",
				zap.String("to", m.to),
				zap.String("subject", m.subject),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Send implements payment.Notifier by queueing the message.
func (d *Dispatcher) Send(ctx context.Context, to, subject, body string) error {
	_ = ctx
	select {
	case d.inbox <- message{to: to, subject: subject, body: body}:
	default:
		d.log.Warn("mail_dropped_buffer_full", zap.String("to", to))
	}
	return nil
}

// Close stops intake; the loop drains the remaining messages.
func (d *Dispatcher) Close() { close(d.inbox) }

// WaitClosed blocks until the drain finishes.
func (d *Dispatcher) WaitClosed() { <-d.done }
