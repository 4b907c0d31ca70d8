package invoicing

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
}

type invoiceItemRequest struct {
	ProductID           *int64 `json:"productId"`
	Description         string `json:"description" validate:"required"`
	Quantity            string `json:"quantity" validate:"required"`
	UnitPrice           string `json:"unitPrice" validate:"required"`
	VATRate             string `json:"vatRate"`
	PurchaseOrderItemID *int64 `json:"purchaseOrderItemId"`
}

type createInvoiceRequest struct {
	Flow            string               `json:"flow" validate:"required"`
	Letter          string               `json:"letter" validate:"required"`
	PointOfSale     int                  `json:"pointOfSale" validate:"required"`
	Number          int                  `json:"number" validate:"required"`
	Date            string               `json:"date"`
	DueDate         string               `json:"dueDate"`
	ContactID       *int64               `json:"contactId"`
	PurchaseOrderID *int64               `json:"purchaseOrderId"`
	Items           []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceItemResponse struct {
	ID                  int64  `json:"id"`
	ProductID           *int64 `json:"productId,omitempty"`
	Description         string `json:"description"`
	Quantity            string `json:"quantity"`
	UnitPrice           string `json:"unitPrice"`
	VATRate             string `json:"vatRate"`
	Total               string `json:"total"`
	PurchaseOrderItemID *int64 `json:"purchaseOrderItemId,omitempty"`
}

type invoiceResponse struct {
	ID              int64                 `json:"id"`
	Flow            string                `json:"flow"`
	Letter          string                `json:"letter"`
	PointOfSale     int                   `json:"pointOfSale"`
	Number          int                   `json:"number"`
	Date            string                `json:"date"`
	ContactID       *int64                `json:"contactId,omitempty"`
	ContactName     string                `json:"contactName,omitempty"`
	NetAmount       string                `json:"netAmount"`
	VATAmount       string                `json:"vatAmount"`
	TotalAmount     string                `json:"totalAmount"`
	AmountAllocated string                `json:"amountAllocated"`
	AmountRemaining string                `json:"amountRemaining"`
	PurchaseOrderID *int64                `json:"purchaseOrderId,omitempty"`
	JournalEntryID  *int64                `json:"journalEntryId,omitempty"`
	Items           []invoiceItemResponse `json:"items,omitempty"`
}

func toInvoiceResponse(inv Invoice) invoiceResponse {
	out := invoiceResponse{
		ID:              inv.ID,
		Flow:            string(inv.Flow),
		Letter:          inv.Letter,
		PointOfSale:     inv.PointOfSale,
		Number:          inv.Number,
		Date:            inv.Date.Format("2006-01-02"),
		ContactID:       inv.ContactID,
		ContactName:     inv.ContactName,
		NetAmount:       inv.NetAmount.StringFixed(2),
		VATAmount:       inv.VATAmount.StringFixed(2),
		TotalAmount:     inv.TotalAmount.StringFixed(2),
		AmountAllocated: inv.AmountAllocated.StringFixed(2),
		AmountRemaining: inv.AmountRemaining.StringFixed(2),
		PurchaseOrderID: inv.PurchaseOrderID,
		JournalEntryID:  inv.JournalEntryID,
	}
	for _, item := range inv.Items {
		out.Items = append(out.Items, invoiceItemResponse{
			ID:                  item.ID,
			ProductID:           item.ProductID,
			Description:         item.Description,
			Quantity:            item.Quantity.String(),
			UnitPrice:           item.UnitPrice.StringFixed(2),
			VATRate:             item.VATRate.String(),
			Total:               item.Total.StringFixed(2),
			PurchaseOrderItemID: item.PurchaseOrderItemID,
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
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	input := CreateInput{
		Flow:            Flow(req.Flow),
		Letter:          req.Letter,
		PointOfSale:     req.PointOfSale,
		Number:          req.Number,
		ContactID:       req.ContactID,
		PurchaseOrderID: req.PurchaseOrderID,
	}
	if req.Date != "" {
		if input.Date, err = time.Parse("2006-01-02", req.Date); err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid date %q", req.Date))
			return
		}
	}
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid due date %q", req.DueDate))
			return
		}
		input.DueDate = &due
	}
	for i, item := range req.Items {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("item %d: invalid quantity", i))
			return
		}
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("item %d: invalid unit price", i))
			return
		}
		rate := decimal.Zero
		if item.VATRate != "" {
			if rate, err = decimal.NewFromString(item.VATRate); err != nil {
				shared.RespondError(w, h.logger, shared.Validationf("item %d: invalid VAT rate", i))
				return
			}
		}
		input.Items = append(input.Items, ItemInput{
			ProductID:           item.ProductID,
			Description:         item.Description,
			Quantity:            qty,
			UnitPrice:           price,
			VATRate:             rate,
			PurchaseOrderItemID: item.PurchaseOrderItemID,
		})
	}
	created, err := h.service.Create(r.Context(), orgID, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toInvoiceResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid invoice id"))
		return
	}
	inv, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toInvoiceResponse(inv))
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
	out := make([]invoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}
