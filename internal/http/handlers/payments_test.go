package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "astrovani.com/app/internal/http"
	"astrovani.com/app/internal/http/handlers"
	"astrovani.com/app/internal/mailer"
	"astrovani.com/app/internal/modules/gateway"
	"astrovani.com/app/internal/modules/notify"
	"astrovani.com/app/internal/modules/orders"
	"astrovani.com/app/internal/modules/payments"
)

type fakeGateway struct {
	createCalls int
	createErr   error

	payments  []gateway.Payment
	fetchErr  error
	lastOrder gateway.CreateOrderRequest
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (gateway.Order, error) {
	g.createCalls++
	g.lastOrder = req
	if g.createErr != nil {
		return gateway.Order{}, g.createErr
	}
	return gateway.Order{
		OrderID:          req.OrderID,
		PaymentSessionID: "session_" + req.OrderID,
		OrderStatus:      "ACTIVE",
		OrderAmount:      req.OrderAmount,
		OrderCurrency:    req.OrderCurrency,
		OrderNote:        req.OrderNote,
		CustomerDetails:  req.CustomerDetails,
	}, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (gateway.Order, error) {
	return gateway.Order{OrderID: orderID}, nil
}

func (g *fakeGateway) FetchPayments(ctx context.Context, orderID string) ([]gateway.Payment, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.payments, nil
}

type testEnv struct {
	router  *gin.Engine
	gateway *fakeGateway
	mailer  *mailer.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := &fakeGateway{}
	meta := orders.NewMemoryMetaStore()
	mock := &mailer.Mock{}

	svc := orders.NewService(gw, meta, logger, "https://astrovani.com", "https://api.astrovani.com", false)
	dispatcher := notify.NewDispatcher(notify.NewMemoryLedger(), meta, gw, mock, logger, "reports@astrovani.com", "AstroVani")
	poller := payments.NewPoller(gw, dispatcher, logger)
	poller.Interval = time.Millisecond
	poller.MaxAttempts = 2

	ph := handlers.NewPaymentHandler(svc, gw, dispatcher, poller, logger, "TEST")
	wh := handlers.NewWebhookHandler(payments.NewVerifier("whsec"), payments.NewWebhookService(payments.NewMemoryEventStore(), nil, logger), logger)

	return &testEnv{
		router:  apphttp.NewRouter(logger, ph, wh, []string{"https://astrovani.com"}),
		gateway: gw,
		mailer:  mock,
	}
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validOrderBody() map[string]any {
	return map[string]any{
		"amount":          499,
		"customerName":    "Ravi Kumar",
		"customerEmail":   "ravi@example.com",
		"customerPhone":   "9876543210",
		"dateOfBirth":     "1990-05-14",
		"whatsappNumber":  "9876543210",
		"reasonForReport": "Career guidance",
		"serviceType":     "Astrology Consultation",
	}
}

func TestCreateOrderAccepted(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(env.router, "/api/payment/create-order", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			OrderID          string  `json:"orderId"`
			PaymentSessionID string  `json:"paymentSessionId"`
			OrderAmount      float64 `json:"orderAmount"`
			OrderCurrency    string  `json:"orderCurrency"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.OrderID)
	assert.NotEmpty(t, resp.Data.PaymentSessionID)
	assert.Equal(t, 499.0, resp.Data.OrderAmount)
	assert.Equal(t, "INR", resp.Data.OrderCurrency)

	assert.Equal(t, 1, env.gateway.createCalls)
	assert.Equal(t, "+919876543210", env.gateway.lastOrder.CustomerDetails.CustomerPhone)
}

func TestCreateOrderPriceMismatchRejected(t *testing.T) {
	env := newTestEnv(t)

	body := validOrderBody()
	body["amount"] = 450

	w := postJSON(env.router, "/api/payment/create-order", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.gateway.createCalls, "tampered amount must never reach the gateway")

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "does not match")
}

func TestCreateOrderValidationRejected(t *testing.T) {
	env := newTestEnv(t)

	body := validOrderBody()
	body["customerPhone"] = "12345"

	w := postJSON(env.router, "/api/payment/create-order", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.gateway.createCalls)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "customerPhone")
}

func TestCreateOrderEmptyBodyFailFastOrdering(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(env.router, "/api/payment/create-order", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.gateway.createCalls)

	// Presence checks run in a fixed order and amount is checked first;
	// an empty body must surface that message, not a generic bind error.
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Missing required field: amount", resp.Error)
	assert.Contains(t, resp.Fields, "amount")
}

func TestCreateOrderSuspiciousInputRejected(t *testing.T) {
	env := newTestEnv(t)

	body := validOrderBody()
	body["reasonForReport"] = "<script>alert(1)</script>"

	w := postJSON(env.router, "/api/payment/create-order", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.gateway.createCalls)
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.createErr = &gateway.APIError{StatusCode: 401, Code: "authentication_error", Message: "Invalid credentials"}

	w := postJSON(env.router, "/api/payment/create-order", validOrderBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "Invalid credentials")
}

func TestStatusEmptyWhileProcessing(t *testing.T) {
	env := newTestEnv(t)

	w := getPath(env.router, "/api/payment/status/astro_1_1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		State   string            `json:"state"`
		Data    []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pending", resp.State)
	assert.Empty(t, resp.Data)
}

func TestStatusSuccessTriggersOneEmail(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.payments = []gateway.Payment{{
		OrderID:       "astro_2_2",
		PaymentStatus: "SUCCESS",
		PaymentAmount: 499,
	}}

	// seed meta via a real create so the dispatcher has a recipient
	w := postJSON(env.router, "/api/payment/create-order", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = getPath(env.router, "/api/payment/status/"+created.Data.OrderID)
	require.Equal(t, http.StatusOK, w.Code)
	w = getPath(env.router, "/api/payment/status/"+created.Data.OrderID)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, env.mailer.SentCount(), "repeated status checks must not resend")
}

func TestStatusGatewayUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.fetchErr = errors.New("connection refused")

	w := getPath(env.router, "/api/payment/status/astro_3_3")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "contact support")
}

func TestEmailStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.payments = []gateway.Payment{{PaymentStatus: "SUCCESS", PaymentAmount: 499}}

	w := postJSON(env.router, "/api/payment/create-order", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	orderID := created.Data.OrderID

	w = getPath(env.router, "/api/payment/email-status/"+orderID)
	require.Equal(t, http.StatusOK, w.Code)
	var before struct {
		EmailSent bool `json:"emailSent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &before))
	assert.False(t, before.EmailSent)

	_ = getPath(env.router, "/api/payment/status/"+orderID)

	w = getPath(env.router, "/api/payment/email-status/"+orderID)
	require.Equal(t, http.StatusOK, w.Code)
	var after struct {
		EmailSent     bool   `json:"emailSent"`
		CustomerEmail string `json:"customerEmail"`
		SentAt        string `json:"sentAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.True(t, after.EmailSent)
	assert.Equal(t, "ravi@example.com", after.CustomerEmail)
	assert.NotEmpty(t, after.SentAt)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := getPath(env.router, "/api/payment/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Timestamp   string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "TEST", resp.Environment)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/payment/create-order", nil)
	req.Header.Set("Origin", "https://astrovani.com")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://astrovani.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/payment/create-order", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "unknown origin gets no CORS headers")
}
