// Package payment implements payment intent creation and confirmation.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domorder "github.com/grainfield/orderflow/internal/domain/order"
	domoutbox "github.com/grainfield/orderflow/internal/domain/outbox"
	domain "github.com/grainfield/orderflow/internal/domain/payment"
	"github.com/grainfield/orderflow/internal/pkg/logging"
)

const (
	useCaseCreateIntent = "payment.create_intent"
	useCaseConfirm      = "payment.confirm"

	publishTimeout = 300 * time.Millisecond
)

// ErrInvalidInput marks malformed payment requests.
var ErrInvalidInput = errors.New("payment: invalid request")

type Service struct {
	orders    domorder.Repository
	payments  domain.Repository
	gateway   domain.Gateway
	publisher domoutbox.Publisher
	currency  string
	tracer    trace.Tracer

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func NewService(
	orders domorder.Repository,
	payments domain.Repository,
	gateway domain.Gateway,
	publisher domoutbox.Publisher,
	currency string,
	requests *prometheus.CounterVec,
	durations *prometheus.HistogramVec,
) *Service {
	return &Service{
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		currency:  currency,
		tracer:    otel.Tracer("payment-service"),
		requests:  requests,
		durations: durations,
	}
}

// CreateIntent asks the gateway for a payment intent covering price, given in
// major currency units. Gateway failures are returned to the caller as-is,
// with no retry.
func (s *Service) CreateIntent(ctx context.Context, price float64) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, "CreatePaymentIntent", trace.WithAttributes(
		attribute.Float64("payment.price", price),
	))
	defer s.finish(span, useCaseCreateIntent, time.Now(), &err)

	if price <= 0 {
		return "", fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	amountMinor := int64(math.Round(price * 100))
	clientSecret, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency)
	if err != nil {
		return "", err
	}
	return clientSecret, nil
}

type ConfirmInput struct {
	TransactionID string
	Email         string
	PayerName     string
	Amount        float64
}

// Confirm records a successful charge against the order: the order is marked
// paid and moved to processing, a payment record is appended, and the payer
// notification is published fire-and-forget. A repeat confirmation is not
// rejected; it overwrites the transaction id.
func (s *Service) Confirm(ctx context.Context, orderID string, input ConfirmInput) (_ *domorder.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "ConfirmPayment", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer s.finish(span, useCaseConfirm, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("use_case", useCaseConfirm))

	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if input.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.MarkPaid(input.TransactionID); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("payment: persist order: %w", err)
	}

	amount := input.Amount
	if amount == 0 {
		amount = entity.TotalPrice
	}
	record := &domain.Record{
		TransactionID: input.TransactionID,
		OrderID:       entity.ID,
		Email:         entity.Email,
		PayerName:     input.PayerName,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
	if input.Email != "" {
		record.Email = input.Email
	}
	// The confirmation already succeeded; a lost audit row is logged, not
	// surfaced.
	if err := s.payments.Insert(ctx, record); err != nil {
		logger.Error("payment_record_insert_failed",
			zap.String("order_id", entity.ID),
			zap.String("transaction_id", input.TransactionID),
			zap.Error(err),
		)
	}

	s.publish(ctx, logger, domorder.NewOrderPaidEvent(entity, input.Email, input.PayerName))

	logger.Info("payment_confirmed",
		zap.String("order_id", entity.ID),
		zap.String("transaction_id", input.TransactionID),
	)
	return entity, nil
}

// History returns the payment records for a customer, newest last.
func (s *Service) History(ctx context.Context, email string) ([]*domain.Record, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.payments.ListByEmail(ctx, email)
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logger.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func (s *Service) finish(span trace.Span, useCase string, start time.Time, err *error) {
	outcome := "success"
	if err != nil && *err != nil {
		outcome = "error"
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if s.requests != nil {
		s.requests.WithLabelValues(useCase, outcome).Inc()
	}
	if s.durations != nil {
		s.durations.WithLabelValues(useCase).Observe(time.Since(start).Seconds())
	}
}
