package treasury

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/andino-erp/andino-erp/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/balances", h.Balances)
	r.Get("/{id}", h.Get)
}

type createTreasuryRequest struct {
	Name            string `json:"name" validate:"required"`
	Method          string `json:"method" validate:"required"`
	Currency        string `json:"currency"`
	LedgerAccountID int64  `json:"ledgerAccountId" validate:"required"`
}

type treasuryResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Method          string `json:"method"`
	Currency        string `json:"currency"`
	LedgerAccountID int64  `json:"ledgerAccountId"`
	Balance         string `json:"balance"`
}

func toTreasuryResponse(a Account) treasuryResponse {
	return treasuryResponse{
		ID:              a.ID,
		Name:            a.Name,
		Method:          string(a.Method),
		Currency:        a.Currency,
		LedgerAccountID: a.LedgerAccountID,
		Balance:         a.Balance.StringFixed(2),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createTreasuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	created, err := h.service.Create(r.Context(), orgID, CreateInput{
		Name:            req.Name,
		Method:          PaymentMethod(req.Method),
		Currency:        req.Currency,
		LedgerAccountID: req.LedgerAccountID,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toTreasuryResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid treasury account id"))
		return
	}
	a, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toTreasuryResponse(a))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.List(r.Context(), orgID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]treasuryResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toTreasuryResponse(a))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	balances, err := h.service.Balances(r.Context(), orgID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, balances)
}
