package orgconfig

import (
	"encoding/json"
	"log/slog"
	"net/http"

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
	r.Get("/", h.Get)
	r.Put("/", h.Put)
}

type configPayload struct {
	SalesAccountID        *int64 `json:"salesAccountId"`
	SalesVATAccountID     *int64 `json:"salesVatAccountId"`
	ReceivablesAccountID  *int64 `json:"receivablesAccountId"`
	PurchasesAccountID    *int64 `json:"purchasesAccountId"`
	PurchasesVATAccountID *int64 `json:"purchasesVatAccountId"`
	PayablesAccountID     *int64 `json:"payablesAccountId"`
	CashAccountID         *int64 `json:"cashAccountId"`
	BankAccountID         *int64 `json:"bankAccountId"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	cfg, err := h.repo.Get(r.Context(), orgID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, configPayload{
		SalesAccountID:        cfg.SalesAccountID,
		SalesVATAccountID:     cfg.SalesVATAccountID,
		ReceivablesAccountID:  cfg.ReceivablesAccountID,
		PurchasesAccountID:    cfg.PurchasesAccountID,
		PurchasesVATAccountID: cfg.PurchasesVATAccountID,
		PayablesAccountID:     cfg.PayablesAccountID,
		CashAccountID:         cfg.CashAccountID,
		BankAccountID:         cfg.BankAccountID,
	})
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req configPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	cfg := Config{
		OrgID:                 orgID,
		SalesAccountID:        req.SalesAccountID,
		SalesVATAccountID:     req.SalesVATAccountID,
		ReceivablesAccountID:  req.ReceivablesAccountID,
		PurchasesAccountID:    req.PurchasesAccountID,
		PurchasesVATAccountID: req.PurchasesVATAccountID,
		PayablesAccountID:     req.PayablesAccountID,
		CashAccountID:         req.CashAccountID,
		BankAccountID:         req.BankAccountID,
	}
	ok, err := h.repo.AccountsExist(r.Context(), orgID, cfg.AccountIDs())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !ok {
		shared.RespondError(w, h.logger, shared.NotFoundf("configuration references a ledger account that does not exist"))
		return
	}
	if err := h.repo.Put(r.Context(), cfg); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
