package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autosettle/autosettle/internal/platform/httpx"
	"github.com/autosettle/autosettle/internal/shared"
)

// Handler exposes dashboard aggregates over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes; callers wrap them in auth
// middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard/kpis", h.KPIs)
}

func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	ownerID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	summary, err := h.service.GetKPISummary(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("kpi summary", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, summary)
}
