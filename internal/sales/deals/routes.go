package deals

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers deal routes; callers wrap them in auth middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/deals", h.List)
	r.Post("/deals", h.Create)
	r.Get("/deals/{id}", h.Show)
	r.Patch("/deals/{id}", h.Update)
	r.Delete("/deals/{id}", h.Delete)
	r.Post("/deals/{id}/services", h.AddServiceLine)
	r.Post("/deals/{id}/payment-schedules", h.AddPaymentSchedule)
}
