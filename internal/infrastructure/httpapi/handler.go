package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appcatalog "github.com/grainfield/orderflow/internal/application/catalog"
	apporder "github.com/grainfield/orderflow/internal/application/order"
	apppayment "github.com/grainfield/orderflow/internal/application/payment"
	domcatalog "github.com/grainfield/orderflow/internal/domain/catalog"
	domorder "github.com/grainfield/orderflow/internal/domain/order"
	"github.com/grainfield/orderflow/internal/infrastructure/redisx"
	"github.com/grainfield/orderflow/internal/infrastructure/stripe"
	"github.com/grainfield/orderflow/internal/pkg/logging"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	orders   *apporder.Service
	payments *apppayment.Service
	catalog  *appcatalog.Service
	cache    *redisx.StatusCache
	auth     *Authenticator

	webhookSecret string
}

func NewHandler(
	orders *apporder.Service,
	payments *apppayment.Service,
	catalog *appcatalog.Service,
	cache *redisx.StatusCache,
	auth *Authenticator,
	webhookSecret string,
) *Handler {
	if cache == nil {
		cache = redisx.NewStatusCache(nil)
	}
	return &Handler{
		orders:        orders,
		payments:      payments,
		catalog:       catalog,
		cache:         cache,
		auth:          auth,
		webhookSecret: webhookSecret,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type orderInformation struct {
	ProductID     string  `json:"productID"`
	ProductName   string  `json:"productName"`
	OrderQuantity int     `json:"orderQuantity"`
	Email         string  `json:"email"`
	TotalPrice    float64 `json:"totalPrice"`
	Address       string  `json:"address"`
	Phone         string  `json:"phone"`
}

type placeOrderRequest struct {
	OrderInformation orderInformation `json:"OrderInformation"`
}

type insertAck struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type deleteAck struct {
	Acknowledged bool `json:"acknowledged"`
	DeletedCount int  `json:"deletedCount"`
}

type orderDoc struct {
	ID            string    `json:"_id"`
	ProductID     string    `json:"productID"`
	ProductName   string    `json:"productName,omitempty"`
	Email         string    `json:"email"`
	OrderQuantity int       `json:"orderQuantity"`
	TotalPrice    float64   `json:"totalPrice"`
	Address       string    `json:"address,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	IsPaid        bool      `json:"isPaid"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toOrderDoc(o *domorder.Order) orderDoc {
	return orderDoc{
		ID:            o.ID,
		ProductID:     o.ProductID,
		ProductName:   o.ProductName,
		Email:         o.Email,
		OrderQuantity: o.Quantity,
		TotalPrice:    o.TotalPrice,
		Address:       o.Address,
		Phone:         o.Phone,
		IsPaid:        o.IsPaid,
		Status:        string(o.Status.Normalized()),
		TransactionID: o.TransactionID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

type productDoc struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	MinimumOrder int     `json:"minimumOrder"`
}

func toProductDoc(p *domcatalog.Product) productDoc {
	return productDoc{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.UnitPrice,
		Quantity:     p.Quantity,
		MinimumOrder: p.MinimumOrder,
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	docs := make([]productDoc, 0, len(products))
	for _, p := range products {
		docs = append(docs, toProductDoc(p))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDoc(p))
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	info := req.OrderInformation
	res, err := h.orders.PlaceOrder(r.Context(), apporder.PlaceOrderInput{
		ProductID:   info.ProductID,
		ProductName: info.ProductName,
		Email:       info.Email,
		Quantity:    info.OrderQuantity,
		TotalPrice:  info.TotalPrice,
		Address:     info.Address,
		Phone:       info.Phone,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, insertAck{Acknowledged: true, InsertedID: res.OrderID})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if tokenEmail := AuthEmail(r.Context()); tokenEmail != "" && tokenEmail != email {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "token email does not match requested email"})
		return
	}

	orders, err := h.orders.ListByEmail(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	docs := make([]orderDoc, 0, len(orders))
	for _, o := range orders {
		docs = append(docs, toOrderDoc(o))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) OrderDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if doc, ok := h.cache.Get(r.Context(), id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(doc)
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc := toOrderDoc(o)
	if raw, err := json.Marshal(doc); err == nil {
		h.cache.Set(r.Context(), id, raw)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.orders.Cancel(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, deleteAck{Acknowledged: true, DeletedCount: 1})
}

func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.orders.Ship(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, toOrderDoc(o))
}

type createIntentRequest struct {
	Price float64 `json:"price"`
}

type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	secret, err := h.payments.CreateIntent(r.Context(), req.Price)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createIntentResponse{ClientSecret: secret})
}

type confirmPaymentRequest struct {
	TransactionID string  `json:"transactionId"`
	Email         string  `json:"email"`
	UserName      string  `json:"userName"`
	ProductID     string  `json:"productID"`
	Amount        float64 `json:"amount"`
}

// ConfirmPayment applies a payment result to the order. When a webhook secret
// is configured the request must carry a valid gateway signature over the raw
// body; otherwise the caller is trusted, matching the original contract.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable request body"})
		return
	}

	if h.webhookSecret != "" {
		header := r.Header.Get(stripe.SignatureHeader)
		if err := stripe.VerifySignature(body, header, h.webhookSecret, stripe.DefaultTolerance); err != nil {
			logging.FromContext(r.Context()).Warn("webhook_signature_rejected", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid webhook signature"})
			return
		}
	}

	var req confirmPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	orderID := chi.URLParam(r, "id")
	o, err := h.payments.Confirm(r.Context(), orderID, apppayment.ConfirmInput{
		TransactionID: req.TransactionID,
		Email:         req.Email,
		PayerName:     req.UserName,
		Amount:        req.Amount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cache.MarkConfirmation(r.Context(), req.TransactionID)
	h.cache.Invalidate(r.Context(), orderID)
	writeJSON(w, http.StatusOK, toOrderDoc(o))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway

	switch {
	case errors.Is(err, apporder.ErrInvalidInput),
		errors.Is(err, apppayment.ErrInvalidInput),
		errors.Is(err, appcatalog.ErrInvalidInput),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidPrice),
		errors.Is(err, domorder.ErrMissingTransaction),
		errors.Is(err, domcatalog.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, domorder.ErrNotFound), errors.Is(err, domcatalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrNotCancellable),
		errors.Is(err, domorder.ErrConflict):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("response_encode_failed", zap.Error(err))
	}
}
