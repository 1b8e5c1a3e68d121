package partners

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hesabyar/hesabyar/internal/platform/httpx"
)

// Handler exposes customer and supplier endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountCustomerRoutes registers /customers routes.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	r.Get("/", h.listCustomers)
	r.Post("/", h.createCustomer)
	r.Get("/{id}", h.getCustomer)
	r.Put("/{id}", h.updateCustomer)
	r.Delete("/{id}", h.deleteCustomer)
}

// MountSupplierRoutes registers /suppliers routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/", h.listSuppliers)
	r.Post("/", h.createSupplier)
	r.Get("/{id}", h.getSupplier)
	r.Put("/{id}", h.updateSupplier)
	r.Delete("/{id}", h.deleteSupplier)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCustomers(r.Context(), r.URL.Query().Get("q"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), id)
	h.respond(w, http.StatusOK, c, err)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateCustomer(r.Context(), in)
	h.respond(w, http.StatusCreated, map[string]int64{"id": id}, err)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.UpdateCustomer(r.Context(), id, in))
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.DeleteCustomer(r.Context(), id))
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListSuppliers(r.Context())
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.GetSupplier(r.Context(), id)
	h.respond(w, http.StatusOK, s, err)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateSupplier(r.Context(), in)
	h.respond(w, http.StatusCreated, map[string]int64{"id": id}, err)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.UpdateSupplier(r.Context(), id, in))
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondEmpty(w, h.service.DeleteSupplier(r.Context(), id))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, status, body)
}

func (h *Handler) respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"title":   "Possible Duplicate",
			"status":  http.StatusConflict,
			"detail":  dup.Error(),
			"matches": dup.Matches,
		})
		return
	}
	h.logger.Warn("partners request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
