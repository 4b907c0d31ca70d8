package payments

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/shared"
	"github.com/andino-erp/andino-erp/internal/treasury"
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
	r.Get("/{id}", h.Get)
	r.Post("/{id}/allocations", h.Allocate)
}

type createPaymentRequest struct {
	Type              string `json:"type" validate:"required"`
	Method            string `json:"method" validate:"required"`
	Amount            string `json:"amount" validate:"required"`
	Date              string `json:"date"`
	TreasuryAccountID int64  `json:"treasuryAccountId" validate:"required"`
	InvoiceID         *int64 `json:"invoiceId"`
	ContactID         *int64 `json:"contactId"`
}

type allocationRequest struct {
	InvoiceID int64  `json:"invoiceId" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Notes     string `json:"notes"`
}

type allocateRequest struct {
	Allocations []allocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type allocationResponse struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"invoiceId"`
	RetentionID *int64 `json:"retentionId,omitempty"`
	Amount      string `json:"amount"`
	Notes       string `json:"notes,omitempty"`
}

type paymentResponse struct {
	ID                int64                `json:"id"`
	Type              string               `json:"type"`
	Method            string               `json:"method"`
	Amount            string               `json:"amount"`
	Date              string               `json:"date"`
	InvoiceID         *int64               `json:"invoiceId,omitempty"`
	ContactID         *int64               `json:"contactId,omitempty"`
	TreasuryAccountID int64                `json:"treasuryAccountId"`
	AmountAllocated   string               `json:"amountAllocated"`
	AmountRemaining   string               `json:"amountRemaining"`
	JournalEntryID    *int64               `json:"journalEntryId,omitempty"`
	Allocations       []allocationResponse `json:"allocations,omitempty"`
}

func toPaymentResponse(p Payment) paymentResponse {
	out := paymentResponse{
		ID:                p.ID,
		Type:              string(p.Type),
		Method:            string(p.Method),
		Amount:            p.Amount.StringFixed(2),
		Date:              p.Date.Format("2006-01-02"),
		InvoiceID:         p.InvoiceID,
		ContactID:         p.ContactID,
		TreasuryAccountID: p.TreasuryAccountID,
		AmountAllocated:   p.AmountAllocated.StringFixed(2),
		AmountRemaining:   p.AmountRemaining.StringFixed(2),
		JournalEntryID:    p.JournalEntryID,
	}
	for _, a := range p.Allocations {
		out.Allocations = append(out.Allocations, allocationResponse{
			ID:          a.ID,
			InvoiceID:   a.InvoiceID,
			RetentionID: a.RetentionID,
			Amount:      a.Amount.StringFixed(2),
			Notes:       a.Notes,
		})
	}
	return out
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid amount %q", req.Amount))
		return
	}
	input := CreateInput{
		Type:              Type(req.Type),
		Method:            treasury.PaymentMethod(req.Method),
		Amount:            amount,
		TreasuryAccountID: req.TreasuryAccountID,
		InvoiceID:         req.InvoiceID,
		ContactID:         req.ContactID,
	}
	if req.Date != "" {
		if input.Date, err = time.Parse("2006-01-02", req.Date); err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid date %q", req.Date))
			return
		}
	}
	created, err := h.service.Create(r.Context(), orgID, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toPaymentResponse(created))
}

func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid payment id"))
		return
	}
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	batch := make([]AllocationInput, 0, len(req.Allocations))
	for i, a := range req.Allocations {
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("allocation %d: invalid amount", i))
			return
		}
		batch = append(batch, AllocationInput{InvoiceID: a.InvoiceID, Amount: amount, Notes: a.Notes})
	}
	updated, err := h.service.Allocate(r.Context(), orgID, id, batch)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toPaymentResponse(updated))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid payment id"))
		return
	}
	p, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toPaymentResponse(p))
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
	out := make([]paymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentResponse(p))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}
