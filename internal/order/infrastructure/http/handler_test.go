package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudh2403/Seat-Reservation-System/internal/catalog"
	chargerapp "github.com/anirudh2403/Seat-Reservation-System/internal/charger/application"
	chargerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/charger/domain"
	chargermemory "github.com/anirudh2403/Seat-Reservation-System/internal/charger/infrastructure/memory"
	"github.com/anirudh2403/Seat-Reservation-System/internal/clock"
	ledgerapp "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/application"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/application"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/infrastructure/memory"
)

type stubGateway struct {
	decline bool
}

func (g *stubGateway) Charge(ctx context.Context, orderID string, amountPaise int64, currency string) (string, error) {
	if g.decline {
		return "", &chargerdomain.GatewayError{Reason: "card declined", Retryable: false}
	}
	return "ch_http_1", nil
}

func (g *stubGateway) Refund(ctx context.Context, gatewayRef string) error { return nil }

func newTestHandler(t *testing.T, gw *stubGateway) *Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	led := ledgerapp.NewLedger(log, clk)
	led.AddSeats("ev-1", []string{"A1", "A2"})
	cat := catalog.NewStatic()
	cat.AddEvent("ev-1", []string{"A1", "A2"})

	charger := chargerapp.NewService(log, chargermemory.NewStore(), gw, clk)
	svc := application.NewService(log, memory.NewRepository(), led, charger, cat, clk)
	return NewHandler(log, svc)
}

func postOrder(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrderEndpoint(t *testing.T) {
	h := newTestHandler(t, &stubGateway{})
	routes := h.Routes()

	rec := postOrder(t, routes, `{"buyer_id":"buyer-1","lines":[{"event_id":"ev-1","seat_id":"A1","price_paise":10000}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", string(resp.Status))
	assert.Equal(t, int64(10500), resp.TotalPaise)
	assert.Equal(t, "INR", resp.Currency)

	// readable back by id
	req := httptest.NewRequest(http.MethodGet, "/orders/"+resp.ID, nil)
	got := httptest.NewRecorder()
	routes.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)
}

func TestPlaceOrderEndpointValidation(t *testing.T) {
	h := newTestHandler(t, &stubGateway{})
	routes := h.Routes()

	for name, body := range map[string]string{
		"bad json": `{`,
		"no buyer": `{"lines":[{"event_id":"ev-1","seat_id":"A1","price_paise":100}]}`,
		"no lines": `{"buyer_id":"buyer-1"}`,
		"bad seat": `{"buyer_id":"buyer-1","lines":[{"event_id":"ev-1","seat_id":"Z9","price_paise":100}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postOrder(t, routes, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPlaceOrderEndpointSeatConflict(t *testing.T) {
	h := newTestHandler(t, &stubGateway{})
	routes := h.Routes()

	body := `{"buyer_id":"buyer-1","lines":[{"event_id":"ev-1","seat_id":"A1","price_paise":10000}]}`
	first := postOrder(t, routes, body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postOrder(t, routes, body)
	require.Equal(t, http.StatusConflict, second.Code)

	var resp errorResp
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "seat_unavailable", resp.Error)
	assert.Equal(t, []string{"ev-1/A1"}, resp.Seats)
}

func TestPlaceOrderEndpointPaymentDeclined(t *testing.T) {
	h := newTestHandler(t, &stubGateway{decline: true})
	routes := h.Routes()

	rec := postOrder(t, routes, `{"buyer_id":"buyer-1","lines":[{"event_id":"ev-1","seat_id":"A1","price_paise":10000}]}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp errorResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "payment_failed", resp.Error)
	assert.NotEmpty(t, resp.OrderID)
}

func TestGetOrderNotFound(t *testing.T) {
	h := newTestHandler(t, &stubGateway{})
	routes := h.Routes()

	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	limited := RateLimit(log, 1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/orders/x", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/orders/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
