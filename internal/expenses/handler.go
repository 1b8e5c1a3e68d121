package expenses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hesabyar/hesabyar/internal/platform/httpx"
)

// Handler exposes expense, category and account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /expenses routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Delete("/categories/{id}", h.deleteCategory)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountAccountRoutes registers /accounts routes.
func (h *Handler) MountAccountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
	r.Put("/{id}", h.updateAccount)
	r.Delete("/{id}", h.deleteAccount)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.DateRangeQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.ListExpenses(r.Context(), Filter{Range: rng, Category: r.URL.Query().Get("category")})
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.GetExpense(r.Context(), id)
	h.respond(w, http.StatusOK, e, err)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateExpense(r.Context(), in)
	h.respond(w, http.StatusCreated, map[string]int64{"id": id}, err)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.UpdateExpense(r.Context(), id, in))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.DeleteExpense(r.Context(), id))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCategories(r.Context())
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateCategory(r.Context(), in.Name)
	h.respond(w, http.StatusCreated, map[string]int64{"id": id}, err)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.DeleteCategory(r.Context(), id))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListAccounts(r.Context(), AccountType(r.URL.Query().Get("type")))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in AccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateAccount(r.Context(), in)
	h.respond(w, http.StatusCreated, map[string]int64{"id": id}, err)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in AccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.UpdateAccount(r.Context(), id, in))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.DeleteAccount(r.Context(), id))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		h.logger.Warn("expenses request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, body)
}

func (h *Handler) respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		h.logger.Warn("expenses request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
