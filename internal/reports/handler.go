package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hesabyar/hesabyar/internal/platform/httpx"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	today   func() shared.Date
}

// NewHandler constructs Handler. today supplies the dashboard date when the
// request does not name one.
func NewHandler(logger *slog.Logger, service *Service, today func() shared.Date) *Handler {
	return &Handler{logger: logger, service: service, today: today}
}

// MountRoutes registers /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/journal", h.journal)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.DateRangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.FinancialSummary(r.Context(), rng)
	if err != nil {
		h.fail(w, "financial summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.DateRangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.GeneralJournal(r.Context(), rng)
	if err != nil {
		h.fail(w, "general journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var today shared.Date
	if raw := r.URL.Query().Get("today"); raw != "" {
		d, err := shared.ParseDate(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		today = d
	} else if h.today != nil {
		today = h.today()
	}
	out, err := h.service.Dashboard(r.Context(), today)
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrValidation) {
		h.logger.Info(op, slog.Any("error", err))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
