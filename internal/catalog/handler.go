package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andino-erp/andino-erp/internal/shared"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
}

type productResponse struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Stockable          bool   `json:"stockable"`
	StockQty           string `json:"stockQty"`
	SalesAccountID     *int64 `json:"salesAccountId,omitempty"`
	PurchasesAccountID *int64 `json:"purchasesAccountId,omitempty"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid product id"))
		return
	}
	product, err := h.repo.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, productResponse{
		ID:                 product.ID,
		Name:               product.Name,
		Stockable:          product.Stockable,
		StockQty:           product.StockQty.String(),
		SalesAccountID:     product.SalesAccountID,
		PurchasesAccountID: product.PurchasesAccountID,
	})
}
