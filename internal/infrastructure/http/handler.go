package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bitewise/checkout/internal/application/workflow"
	domainOrder "github.com/bitewise/checkout/internal/domain/order"
)

type Handler struct {
	workflow      *workflow.Orchestrator
	log           *zap.Logger
	tracer        trace.Tracer
	allowedOrigin string
	requests      *prometheus.CounterVec
	durations     *prometheus.HistogramVec
}

func NewHandler(
	wf *workflow.Orchestrator,
	logger *zap.Logger,
	allowedOrigin string,
	requests *prometheus.CounterVec,
	durations *prometheus.HistogramVec,
) *Handler {
	return &Handler{
		workflow:      wf,
		log:           logger,
		tracer:        otel.Tracer("checkout-http"),
		allowedOrigin: allowedOrigin,
		requests:      requests,
		durations:     durations,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestContext(h.log))
	r.Use(Metrics(h.requests, h.durations))
	r.Use(CORS(h.allowedOrigin))

	r.Post("/orders/intent", h.createIntent)
	r.Post("/orders/complete", h.completeOrder)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type itemPayload struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type intentRequest struct {
	Amount int64         `json:"amount"`
	Items  []itemPayload `json:"items"`
	// OrderID is the caller's ledger document id, accepted for client
	// convenience; completion identifies the document explicitly.
	OrderID string `json:"order_id,omitempty"`
}

type intentResponse struct {
	IntentRef     string `json:"intent_ref"`
	ReservationID string `json:"reservation_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HTTP.CreateIntent")
	defer span.End()

	var req intentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]domainOrder.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domainOrder.Item{ItemID: it.ID, Quantity: it.Quantity})
	}

	result, err := h.workflow.CreateIntent(ctx, workflow.CreateIntentInput{
		Amount: req.Amount,
		Items:  items,
	})
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, intentResponse{
		IntentRef:     result.IntentRef,
		ReservationID: result.ReservationID,
		Amount:        result.Amount,
		Currency:      result.Currency,
	})
}

type completeRequest struct {
	OrderRef      string `json:"order_ref"`
	PaymentRef    string `json:"payment_ref"`
	Signature     string `json:"signature"`
	OrderDocID    string `json:"order_doc_id"`
	ReservationID string `json:"reservation_id"`
}

type completeResponse struct {
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	RefundWarning string `json:"refund_warning,omitempty"`
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "HTTP.CompleteOrder")
	defer span.End()

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.workflow.Complete(ctx, workflow.CompleteInput{
		OrderRef:      req.OrderRef,
		PaymentRef:    req.PaymentRef,
		Signature:     req.Signature,
		OrderDocID:    req.OrderDocID,
		ReservationID: req.ReservationID,
	})
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{
		Status:        result.Status,
		Reason:        result.Reason,
		RefundWarning: result.RefundWarning,
	})
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, workflow.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, workflow.ErrSignatureMismatch):
		writeJSON(w, http.StatusBadRequest, completeResponse{
			Status: "cancelled",
			Reason: "signature_mismatch",
		})
	case errors.Is(err, workflow.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order_not_found"})
	case errors.Is(err, workflow.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
