// Package httpapi exposes the storefront's REST surface over chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/grainfield/orderflow/internal/pkg/logging"
)

const requestTimeout = 15 * time.Second

// NewRouter wires the handler's routes behind the standard middleware stack.
// The JWT gate covers the order routes only; payment intent creation and the
// confirmation callback stay open (the callback is gated by the webhook
// signature instead, when a secret is configured).
func NewRouter(h *Handler, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.Health)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Post("/order", h.PlaceOrder)
		r.Get("/order/{email}", h.ListOrders)
		r.Get("/order-details/{id}", h.OrderDetails)
		r.Delete("/cancel-order/{id}", h.CancelOrder)
		r.Put("/shipped-order/{id}", h.ShipOrder)
	})

	r.Post("/create-payment-intent", h.CreatePaymentIntent)
	r.Patch("/create-payment-intent/payment/{id}", h.ConfirmPayment)

	return r
}

// requestLogger attaches a request-scoped logger to the context and emits one
// access line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			ctx := logging.ContextWithLogger(r.Context(), reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
