package retention

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/invoicing"
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
	r.Get("/settings", h.ListSettings)
	r.Post("/settings", h.CreateSetting)
	r.Post("/", h.Record)
	r.Get("/invoice/{invoiceID}", h.ListByInvoice)
}

type createSettingRequest struct {
	Name                string  `json:"name" validate:"required"`
	Code                string  `json:"code" validate:"required"`
	Description         string  `json:"description"`
	AppliesTo           *string `json:"appliesTo"`
	DefaultRate         string  `json:"defaultRate"`
	ReceivableAccountID *int64  `json:"receivableAccountId"`
	PayableAccountID    *int64  `json:"payableAccountId"`
}

type settingResponse struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Code                string  `json:"code"`
	Description         string  `json:"description,omitempty"`
	AppliesTo           *string `json:"appliesTo,omitempty"`
	DefaultRate         string  `json:"defaultRate"`
	ReceivableAccountID *int64  `json:"receivableAccountId,omitempty"`
	PayableAccountID    *int64  `json:"payableAccountId,omitempty"`
}

func toSettingResponse(s Setting) settingResponse {
	out := settingResponse{
		ID:                  s.ID,
		Name:                s.Name,
		Code:                s.Code,
		Description:         s.Description,
		DefaultRate:         s.DefaultRate.String(),
		ReceivableAccountID: s.ReceivableAccountID,
		PayableAccountID:    s.PayableAccountID,
	}
	if s.AppliesTo != nil {
		flow := string(*s.AppliesTo)
		out.AppliesTo = &flow
	}
	return out
}

type recordRequest struct {
	InvoiceID         int64  `json:"invoiceId" validate:"required"`
	SettingID         int64  `json:"settingId" validate:"required"`
	BaseAmount        string `json:"baseAmount" validate:"required"`
	Rate              string `json:"rate" validate:"required"`
	Amount            string `json:"amount" validate:"required"`
	CertificateNumber string `json:"certificateNumber"`
	CertificateDate   string `json:"certificateDate"`
	Notes             string `json:"notes"`
}

type retentionResponse struct {
	ID                int64  `json:"id"`
	InvoiceID         int64  `json:"invoiceId"`
	SettingID         int64  `json:"settingId"`
	BaseAmount        string `json:"baseAmount"`
	Rate              string `json:"rate"`
	Amount            string `json:"amount"`
	CertificateNumber string `json:"certificateNumber,omitempty"`
	CertificateDate   string `json:"certificateDate,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

func toRetentionResponse(ret Retention) retentionResponse {
	out := retentionResponse{
		ID:                ret.ID,
		InvoiceID:         ret.InvoiceID,
		SettingID:         ret.SettingID,
		BaseAmount:        ret.BaseAmount.StringFixed(2),
		Rate:              ret.Rate.String(),
		Amount:            ret.Amount.StringFixed(2),
		CertificateNumber: ret.CertificateNumber,
		Notes:             ret.Notes,
	}
	if ret.CertificateDate != nil {
		out.CertificateDate = ret.CertificateDate.Format("2006-01-02")
	}
	return out
}

func (h *Handler) CreateSetting(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	input := SettingInput{
		Name:                req.Name,
		Code:                req.Code,
		Description:         req.Description,
		ReceivableAccountID: req.ReceivableAccountID,
		PayableAccountID:    req.PayableAccountID,
	}
	if req.AppliesTo != nil {
		flow := invoicing.Flow(*req.AppliesTo)
		input.AppliesTo = &flow
	}
	input.DefaultRate = decimal.Zero
	if req.DefaultRate != "" {
		if input.DefaultRate, err = decimal.NewFromString(req.DefaultRate); err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid default rate %q", req.DefaultRate))
			return
		}
	}
	created, err := h.service.CreateSetting(r.Context(), orgID, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toSettingResponse(created))
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	settings, err := h.service.ListSettings(r.Context(), orgID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]settingResponse, 0, len(settings))
	for _, s := range settings {
		out = append(out, toSettingResponse(s))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	input := RecordInput{
		InvoiceID:         req.InvoiceID,
		SettingID:         req.SettingID,
		CertificateNumber: req.CertificateNumber,
		Notes:             req.Notes,
	}
	if input.BaseAmount, err = decimal.NewFromString(req.BaseAmount); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid base amount %q", req.BaseAmount))
		return
	}
	if input.Rate, err = decimal.NewFromString(req.Rate); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid rate %q", req.Rate))
		return
	}
	if input.Amount, err = decimal.NewFromString(req.Amount); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid amount %q", req.Amount))
		return
	}
	if req.CertificateDate != "" {
		date, err := time.Parse("2006-01-02", req.CertificateDate)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid certificate date %q", req.CertificateDate))
			return
		}
		input.CertificateDate = &date
	}
	created, err := h.service.Record(r.Context(), orgID, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toRetentionResponse(created))
}

func (h *Handler) ListByInvoice(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid invoice id"))
		return
	}
	retentions, err := h.service.ListByInvoice(r.Context(), orgID, invoiceID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make([]retentionResponse, 0, len(retentions))
	for _, ret := range retentions {
		out = append(out, toRetentionResponse(ret))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}
