package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/platform/httpx"
	"github.com/hesabyar/hesabyar/internal/settlement"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// IdempotencyGuard reserves request keys so retried payments apply once.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key, scope string) error
}

// Handler exposes invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   IdempotencyGuard
}

// NewHandler constructs Handler. guard may be nil, in which case
// Idempotency-Key headers are validated but not enforced.
func NewHandler(logger *slog.Logger, service *Service, guard IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers /invoices routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.save)
	r.Post("/preview", h.preview)
	r.Get("/open", h.recentOpen)
	r.Get("/{id}", h.get)
	r.Get("/{id}/totals", h.totals)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/payments", h.recordPayment)
}

type saveResponse struct {
	*SaveResult
	Warnings []string `json:"warnings,omitempty"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type paymentResponse struct {
	InvoiceID   int64             `json:"invoice_id"`
	AmountPaid  decimal.Decimal   `json:"amount_paid"`
	Outstanding decimal.Decimal   `json:"outstanding"`
	Status      settlement.Status `json:"status"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var in SaveInvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Save(r.Context(), in)
	var partial *shared.PartialFailure
	switch {
	case errors.As(err, &partial):
		resp := saveResponse{SaveResult: result}
		for _, f := range partial.FollowUps {
			resp.Warnings = append(resp.Warnings, f.Message)
		}
		httpx.JSON(w, http.StatusCreated, resp)
	case err != nil:
		h.fail(w, "save invoice", err)
	default:
		httpx.JSON(w, http.StatusCreated, saveResponse{SaveResult: result})
	}
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var in PreviewInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	totals, err := h.service.Preview(in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.DateRangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.IntQuery(r, "limit", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customerID, err := httpx.IntQuery(r, "customer_id", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), Filter{
		CustomerID: int64(customerID),
		Status:     settlement.Status(q.Get("status")),
		Search:     q.Get("q"),
		Range:      rng,
		Limit:      limit,
	})
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) recentOpen(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntQuery(r, "limit", 5)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.RecentOpen(r.Context(), limit)
	if err != nil {
		h.fail(w, "recent open invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	totals, err := h.service.Totals(r.Context(), id)
	if err != nil {
		h.fail(w, "invoice totals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	opts := DeleteOptions{CascadeCheques: r.URL.Query().Get("cascade_cheques") == "true"}
	if err := h.service.Delete(r.Context(), id, opts); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in paymentRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}

	var key string
	scope := fmt.Sprintf("invoice-payment:%d", id)
	if raw := r.Header.Get("Idempotency-Key"); raw != "" {
		key, err = shared.ParseIdempotencyKey(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if h.guard != nil {
			if err := h.guard.Reserve(r.Context(), key, scope); err != nil {
				h.fail(w, "reserve idempotency key", err)
				return
			}
		}
	}

	b, err := h.service.RecordPayment(r.Context(), id, in.Amount)
	if err != nil {
		if key != "" && h.guard != nil {
			if relErr := h.guard.Release(r.Context(), key, scope); relErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		h.fail(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paymentResponse{
		InvoiceID:   id,
		AmountPaid:  b.Paid,
		Outstanding: b.Outstanding(),
		Status:      b.Status,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrInsufficientStock) {
		h.logger.Info(op, slog.Any("error", err))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
