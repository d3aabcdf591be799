package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcatalog "github.com/grainfield/orderflow/internal/application/catalog"
	apporder "github.com/grainfield/orderflow/internal/application/order"
	apppayment "github.com/grainfield/orderflow/internal/application/payment"
	domcatalog "github.com/grainfield/orderflow/internal/domain/catalog"
	"github.com/grainfield/orderflow/internal/infrastructure/id"
	"github.com/grainfield/orderflow/internal/infrastructure/memory"
	"github.com/grainfield/orderflow/internal/infrastructure/stripe"
)

type stubGateway struct {
	secret string
	err    error
}

func (g *stubGateway) CreateIntent(context.Context, int64, string) (string, error) {
	return g.secret, g.err
}

type testEnv struct {
	server   *httptest.Server
	orders   *memory.OrderRepository
	products *memory.ProductRepository
	gateway  *stubGateway
}

func newEnv(t *testing.T, jwtSecret, webhookSecret string) *testEnv {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository(domcatalog.SalePolicy{Watermark: domcatalog.DefaultWatermark})
	payments := memory.NewPaymentRepository()
	gw := &stubGateway{secret: "pi_test_secret"}

	orderSvc := apporder.NewService(orders, products, nil, id.NewUUIDGenerator(), nil, nil)
	paymentSvc := apppayment.NewService(orders, payments, gw, nil, "usd", nil, nil)
	catalogSvc := appcatalog.NewService(products)

	h := NewHandler(orderSvc, paymentSvc, catalogSvc, nil, NewAuthenticator(jwtSecret), webhookSecret)
	srv := httptest.NewServer(NewRouter(h, zap.NewNop()))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, orders: orders, products: products, gateway: gw}
}

func (e *testEnv) seedProduct(t *testing.T, quantity, minimumOrder int) {
	t.Helper()
	require.NoError(t, e.products.Insert(context.Background(), &domcatalog.Product{
		ID:           "prod-1",
		Name:         "Bulk Coffee Beans",
		UnitPrice:    12.50,
		Quantity:     quantity,
		MinimumOrder: minimumOrder,
	}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func placeOrderBody(quantity int) map[string]any {
	return map[string]any{
		"OrderInformation": map[string]any{
			"productID":     "prod-1",
			"productName":   "Bulk Coffee Beans",
			"orderQuantity": quantity,
			"email":         "buyer@acme.test",
			"totalPrice":    float64(quantity) * 12.50,
			"address":       "12 Dock Rd",
			"phone":         "555-0100",
		},
	}
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 1500, 500)

	resp, raw := env.do(t, http.MethodPost, "/order", placeOrderBody(700), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ack struct {
		Acknowledged bool   `json:"acknowledged"`
		InsertedID   string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.True(t, ack.Acknowledged)
	assert.NotEmpty(t, ack.InsertedID)

	p, err := env.products.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 800, p.Quantity)
	assert.Equal(t, 800, p.MinimumOrder)

	resp, raw = env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "pending", docs[0]["status"])
	assert.Equal(t, false, docs[0]["isPaid"])
}

func TestPlaceOrderInsufficientStockConflict(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 50, 10)

	resp, _ := env.do(t, http.MethodPost, "/order", placeOrderBody(100), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPlaceOrderValidationBadRequest(t *testing.T) {
	env := newEnv(t, "", "")

	body := map[string]any{"OrderInformation": map[string]any{"email": "a@b.test"}}
	resp, _ := env.do(t, http.MethodPost, "/order", body, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelRemovesOrderFromListing(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 2000, 100)

	_, raw := env.do(t, http.MethodPost, "/order", placeOrderBody(10), nil)
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))

	resp, raw := env.do(t, http.MethodDelete, "/cancel-order/"+ack.InsertedID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var del struct {
		Acknowledged bool `json:"acknowledged"`
		DeletedCount int  `json:"deletedCount"`
	}
	require.NoError(t, json.Unmarshal(raw, &del))
	assert.Equal(t, 1, del.DeletedCount)

	resp, raw = env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &docs))
	assert.Empty(t, docs)
}

func TestShipUnpaidOrderConflict(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 2000, 100)

	_, raw := env.do(t, http.MethodPost, "/order", placeOrderBody(10), nil)
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))

	resp, _ := env.do(t, http.MethodPut, "/shipped-order/"+ack.InsertedID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPaymentFlow(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 2000, 100)

	resp, raw := env.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 125}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var intent struct {
		ClientSecret string `json:"clientSecret"`
	}
	require.NoError(t, json.Unmarshal(raw, &intent))
	assert.Equal(t, "pi_test_secret", intent.ClientSecret)

	_, raw = env.do(t, http.MethodPost, "/order", placeOrderBody(10), nil)
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))

	confirm := map[string]any{
		"transactionId": "pi_123",
		"email":         "buyer@acme.test",
		"userName":      "Dana Chen",
		"productID":     "prod-1",
	}
	resp, raw = env.do(t, http.MethodPatch, "/create-payment-intent/payment/"+ack.InsertedID, confirm, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, true, doc["isPaid"])
	assert.Equal(t, "processing", doc["status"])
	assert.Equal(t, "pi_123", doc["transactionId"])

	// Paid orders can ship.
	resp, raw = env.do(t, http.MethodPut, "/shipped-order/"+ack.InsertedID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "shipped", doc["status"])
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	env := newEnv(t, "", "")

	resp, _ := env.do(t, http.MethodPatch, "/create-payment-intent/payment/missing",
		map[string]any{"transactionId": "pi_x"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateIntentGatewayErrorBadGateway(t *testing.T) {
	env := newEnv(t, "", "")
	env.gateway.err = fmt.Errorf("Your card was declined.")

	resp, raw := env.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 50}, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Your card was declined.", body.Error)
}

func signToken(t *testing.T, secret, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTGate(t *testing.T) {
	env := newEnv(t, "test-secret", "")
	env.seedProduct(t, 2000, 100)

	// No token: refused.
	resp, _ := env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong key: refused.
	bad := map[string]string{"Authorization": "Bearer " + signToken(t, "other-secret", "buyer@acme.test")}
	resp, _ = env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid token for a different customer: forbidden.
	other := map[string]string{"Authorization": "Bearer " + signToken(t, "test-secret", "intruder@acme.test")}
	resp, _ = env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Matching token: allowed.
	good := map[string]string{"Authorization": "Bearer " + signToken(t, "test-secret", "buyer@acme.test")}
	resp, _ = env.do(t, http.MethodGet, "/order/buyer@acme.test", nil, good)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Catalog and payment intent routes stay open.
	resp, _ = env.do(t, http.MethodGet, "/products", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 10}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookSignatureGate(t *testing.T) {
	const secret = "whsec_test"
	env := newEnv(t, "", secret)
	env.seedProduct(t, 2000, 100)

	_, raw := env.do(t, http.MethodPost, "/order", placeOrderBody(10), nil)
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))

	payload, err := json.Marshal(map[string]any{"transactionId": "pi_123"})
	require.NoError(t, err)
	path := "/create-payment-intent/payment/" + ack.InsertedID

	// Unsigned: refused.
	req, err := http.NewRequest(http.MethodPatch, env.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Signed with the wrong secret: refused.
	req, err = http.NewRequest(http.MethodPatch, env.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(stripe.SignatureHeader, stripe.SignPayload(payload, "whsec_other", time.Now()))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Properly signed: accepted.
	req, err = http.NewRequest(http.MethodPatch, env.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(stripe.SignatureHeader, stripe.SignPayload(payload, secret, time.Now()))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOrderDetails(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 2000, 100)

	_, raw := env.do(t, http.MethodPost, "/order", placeOrderBody(10), nil)
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))

	resp, raw := env.do(t, http.MethodGet, "/order-details/"+ack.InsertedID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, ack.InsertedID, doc["_id"])

	resp, _ = env.do(t, http.MethodGet, "/order-details/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductRoutes(t *testing.T) {
	env := newEnv(t, "", "")
	env.seedProduct(t, 1500, 500)

	resp, raw := env.do(t, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "prod-1", docs[0]["_id"])

	resp, _ = env.do(t, http.MethodGet, "/products/prod-1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/products/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, "", "")
	resp, _ := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
