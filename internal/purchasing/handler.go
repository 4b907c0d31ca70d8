package purchasing

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
	r.Get("/{id}/available", h.Available)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
}

type orderItemRequest struct {
	ProductID   *int64 `json:"productId"`
	Description string `json:"description" validate:"required"`
	Quantity    string `json:"quantity" validate:"required"`
	UnitPrice   string `json:"unitPrice" validate:"required"`
	VATRate     string `json:"vatRate"`
}

type createOrderRequest struct {
	ContactID    int64              `json:"contactId" validate:"required"`
	IssueDate    string             `json:"issueDate"`
	ExpectedDate string             `json:"expectedDate"`
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   *int64 `json:"productId,omitempty"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	VATRate     string `json:"vatRate"`
	Total       string `json:"total"`
}

type orderResponse struct {
	ID             int64               `json:"id"`
	ContactID      int64               `json:"contactId"`
	Status         string              `json:"status"`
	IssueDate      string              `json:"issueDate"`
	Subtotal       string              `json:"subtotal"`
	VAT            string              `json:"vat"`
	Total          string              `json:"total"`
	InvoicedAmount string              `json:"invoicedAmount"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(po PurchaseOrder) orderResponse {
	out := orderResponse{
		ID:             po.ID,
		ContactID:      po.ContactID,
		Status:         string(po.Status),
		IssueDate:      po.IssueDate.Format("2006-01-02"),
		Subtotal:       po.Subtotal.StringFixed(2),
		VAT:            po.VAT.StringFixed(2),
		Total:          po.Total.StringFixed(2),
		InvoicedAmount: po.InvoicedAmount.StringFixed(2),
	}
	for _, item := range po.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			VATRate:     item.VATRate.String(),
			Total:       item.Total.StringFixed(2),
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
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	input := CreateInput{ContactID: req.ContactID}
	if req.IssueDate != "" {
		if input.IssueDate, err = time.Parse("2006-01-02", req.IssueDate); err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid issue date %q", req.IssueDate))
			return
		}
	}
	if req.ExpectedDate != "" {
		expected, err := time.Parse("2006-01-02", req.ExpectedDate)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid expected date %q", req.ExpectedDate))
			return
		}
		input.ExpectedDate = &expected
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
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    qty,
			UnitPrice:   price,
			VATRate:     rate,
		})
	}
	created, err := h.service.Create(r.Context(), orgID, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, func(orgID, id int64) (PurchaseOrder, error) {
		return h.service.Get(r.Context(), orgID, id)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, func(orgID, id int64) (PurchaseOrder, error) {
		return h.service.Approve(r.Context(), orgID, id)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, func(orgID, id int64) (PurchaseOrder, error) {
		return h.service.Reject(r.Context(), orgID, id)
	})
}

func (h *Handler) withOrder(w http.ResponseWriter, r *http.Request, fn func(orgID, id int64) (PurchaseOrder, error)) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid purchase order id"))
		return
	}
	po, err := fn(orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toOrderResponse(po))
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
	out := make([]orderResponse, 0, len(list))
	for _, po := range list {
		out = append(out, toOrderResponse(po))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid purchase order id"))
		return
	}
	available, err := h.service.AvailableQuantities(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := make(map[string]string, len(available))
	for itemID, qty := range available {
		out[strconv.FormatInt(itemID, 10)] = qty.String()
	}
	shared.RespondJSON(w, http.StatusOK, out)
}
