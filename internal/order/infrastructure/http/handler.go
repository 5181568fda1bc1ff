package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ledgerdomain "github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/application"
	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/healthz", h.health)

	return r
}

type placeOrderReq struct {
	BuyerID string        `json:"buyer_id"`
	Lines   []domain.Line `json:"lines"`
}

type orderResp struct {
	ID         string        `json:"id"`
	BuyerID    string        `json:"buyer_id"`
	Status     domain.Status `json:"status"`
	TotalPaise int64         `json:"total_paise"`
	Currency   string        `json:"currency"`
	Lines      []domain.Line `json:"lines"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type errorResp struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	OrderID string   `json:"order_id,omitempty"`
	Seats   []string `json:"seats,omitempty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "validation", Message: "invalid body"})
		return
	}

	o, err := h.service.PlaceOrder(ctx, application.PlaceOrderInput{
		BuyerID: req.BuyerID,
		Lines:   req.Lines,
	})
	if err != nil {
		h.writeOrderError(w, o, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResp(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp{Error: "not_found"})
			return
		}
		h.log.Error("get order failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeOrderError(w http.ResponseWriter, o domain.Order, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "validation", Message: validation.Reason})
		return
	}

	var unavailable *ledgerdomain.SeatUnavailableError
	if errors.As(err, &unavailable) {
		seats := make([]string, 0, len(unavailable.Refs))
		for _, ref := range unavailable.Refs {
			seats = append(seats, ref.Key())
		}
		writeJSON(w, http.StatusConflict, errorResp{Error: "seat_unavailable", OrderID: o.ID, Seats: seats})
		return
	}

	switch {
	case errors.Is(err, domain.ErrPaymentFailed):
		writeJSON(w, http.StatusPaymentRequired, errorResp{Error: "payment_failed", OrderID: o.ID, Message: err.Error()})
	case errors.Is(err, domain.ErrHoldExpired):
		writeJSON(w, http.StatusConflict, errorResp{Error: "hold_expired", OrderID: o.ID, Message: "seats were lost before confirmation; the charge has been refunded"})
	case errors.Is(err, domain.ErrChargeUnresolved):
		// outcome pending; the order will be settled by resume/reconciliation
		writeJSON(w, http.StatusAccepted, toResp(o))
	default:
		h.log.Error("place order failed", "order_id", o.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal", OrderID: o.ID})
	}
}

func toResp(o domain.Order) orderResp {
	return orderResp{
		ID:         o.ID,
		BuyerID:    o.BuyerID,
		Status:     o.Status,
		TotalPaise: o.TotalPaise,
		Currency:   o.Currency,
		Lines:      o.Lines,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
