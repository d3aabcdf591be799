// Package order implements the order workflow engine: placement, inventory
// adjustment, and lifecycle operations.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grainfield/orderflow/internal/domain/catalog"
	domain "github.com/grainfield/orderflow/internal/domain/order"
	domoutbox "github.com/grainfield/orderflow/internal/domain/outbox"
	"github.com/grainfield/orderflow/internal/pkg/logging"
)

const (
	useCasePlaceOrder = "order.place"
	useCaseListOrders = "order.list"
	useCaseGetOrder   = "order.get"
	useCaseCancel     = "order.cancel"
	useCaseShip       = "order.ship"

	publishTimeout = 300 * time.Millisecond
)

// ErrInvalidInput marks malformed order requests.
var ErrInvalidInput = errors.New("order: invalid request")

type IDGenerator interface {
	NewID() string
}

type Service struct {
	orders      domain.Repository
	products    catalog.Repository
	publisher   domoutbox.Publisher
	idGenerator IDGenerator
	tracer      trace.Tracer

	requests  *prometheus.CounterVec   // usecase_requests_total{use_case,outcome}
	durations *prometheus.HistogramVec // usecase_duration_seconds{use_case}
}

func NewService(
	orders domain.Repository,
	products catalog.Repository,
	publisher domoutbox.Publisher,
	idGen IDGenerator,
	requests *prometheus.CounterVec,
	durations *prometheus.HistogramVec,
) *Service {
	return &Service{
		orders:      orders,
		products:    products,
		publisher:   publisher,
		idGenerator: idGen,
		tracer:      otel.Tracer("order-service"),
		requests:    requests,
		durations:   durations,
	}
}

type PlaceOrderInput struct {
	ProductID   string
	ProductName string
	Email       string
	Quantity    int
	TotalPrice  float64
	Address     string
	Phone       string
}

type PlaceOrderResult struct {
	OrderID string
	Order   *domain.Order
}

// PlaceOrder records the order, then adjusts the product's stock and
// minimum-order threshold. The recorded order is never rolled back: a missing
// product or a failed stock write leaves the order standing, and under the
// reject policy an insufficient-stock sale is reported to the caller while
// the pending order document remains.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("order.product_id", input.ProductID),
		attribute.Int("order.quantity", input.Quantity),
	))
	defer s.finish(span, useCasePlaceOrder, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("use_case", useCasePlaceOrder))

	if input.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	entity, derr := domain.New(s.idGenerator.NewID(), input.ProductID, input.Email, input.Quantity, input.TotalPrice)
	if derr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, derr)
	}
	entity.ProductName = input.ProductName
	entity.Address = input.Address
	entity.Phone = input.Phone

	if err := s.orders.Insert(ctx, entity); err != nil {
		logger.Error("order_insert_failed", zap.Error(err))
		return nil, fmt.Errorf("order: insert: %w", err)
	}
	logger.Info("order_recorded",
		zap.String("order_id", entity.ID),
		zap.String("product_id", entity.ProductID),
		zap.Int("quantity", entity.Quantity),
	)

	sale, saleErr := s.products.ApplySale(ctx, entity.ProductID, entity.Quantity)
	switch {
	case saleErr == nil:
		span.SetAttributes(attribute.Int("product.remaining", sale.Product.Quantity))
		if sale.CrossedWatermark {
			s.publish(ctx, logger, catalog.NewStockDepletedEvent(sale.Product))
		}
	case errors.Is(saleErr, catalog.ErrNotFound):
		// The order stands; the catalog drift is visible in the logs.
		logger.Warn("product_missing_stock_unadjusted",
			zap.String("order_id", entity.ID),
			zap.String("product_id", entity.ProductID),
		)
	case errors.Is(saleErr, catalog.ErrInsufficientStock):
		logger.Warn("order_rejected_insufficient_stock",
			zap.String("order_id", entity.ID),
			zap.String("product_id", entity.ProductID),
			zap.Int("quantity", entity.Quantity),
		)
		return nil, saleErr
	default:
		logger.Error("stock_adjust_failed",
			zap.String("order_id", entity.ID),
			zap.Error(saleErr),
		)
	}

	s.publish(ctx, logger, domain.NewOrderPlacedEvent(entity))

	return &PlaceOrderResult{OrderID: entity.ID, Order: entity}, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) (_ []*domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "ListOrders")
	defer s.finish(span, useCaseListOrders, time.Now(), &err)

	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.orders.ListByEmail(ctx, email)
}

func (s *Service) Get(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "GetOrder")
	defer s.finish(span, useCaseGetOrder, time.Now(), &err)

	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	return s.orders.Get(ctx, orderID)
}

// Cancel deletes a still-pending, unpaid order. Cancellation is terminal:
// once deleted the order cannot be mutated again.
func (s *Service) Cancel(ctx context.Context, orderID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "CancelOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer s.finish(span, useCaseCancel, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("use_case", useCaseCancel))

	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !entity.CancellableNow() {
		return domain.ErrNotCancellable
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	logger.Info("order_cancelled", zap.String("order_id", orderID))
	return nil
}

// Ship moves a paid, processing order to shipped.
func (s *Service) Ship(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "ShipOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer s.finish(span, useCaseShip, time.Now(), &err)

	logger := logging.FromContext(ctx).With(zap.String("use_case", useCaseShip))

	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.MarkShipped(); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, err
	}
	logger.Info("order_shipped", zap.String("order_id", orderID))
	return entity, nil
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
