package journal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andino-erp/andino-erp/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Post)
	r.Get("/{id}", h.Get)
}

type postLineRequest struct {
	AccountID   int64  `json:"accountId"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description"`
}

type postEntryRequest struct {
	Date        string            `json:"date"`
	Description string            `json:"description"`
	Lines       []postLineRequest `json:"lines"`
}

type lineResponse struct {
	AccountID   int64  `json:"accountId"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
}

type entryResponse struct {
	ID          int64          `json:"id"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
	Source      string         `json:"source"`
	Lines       []lineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e Entry) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		Source:      e.SourceModule,
	}
	for _, line := range e.Lines {
		out.Lines = append(out.Lines, lineResponse{
			AccountID:   line.AccountID,
			Debit:       line.Debit.StringFixed(2),
			Credit:      line.Credit.StringFixed(2),
			Description: line.Description,
		})
	}
	return out
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req postEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	builder := NewBuilder()
	for i, line := range req.Lines {
		debit, credit, err := parseLineAmounts(line)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("line %d: %v", i, err))
			return
		}
		if debit.IsPositive() {
			builder.Debit(line.AccountID, debit, line.Description)
		}
		if credit.IsPositive() {
			builder.Credit(line.AccountID, credit, line.Description)
		}
	}
	lines, err := builder.Build()
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			shared.RespondError(w, h.logger, shared.Validationf("invalid date %q", req.Date))
			return
		}
	}
	entry, err := h.service.Post(r.Context(), orgID, PostInput{
		Date:         date,
		Description:  req.Description,
		SourceModule: "journal:manual",
		SourceID:     uuid.New(),
		Lines:        lines,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func parseLineAmounts(line postLineRequest) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	var err error
	if line.Debit != "" {
		if debit, err = decimal.NewFromString(line.Debit); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	if line.Credit != "" {
		if credit, err = decimal.NewFromString(line.Credit); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	return debit, credit, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid entry id"))
		return
	}
	entry, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toEntryResponse(entry))
}

type listResponse struct {
	Data       []entryResponse `json:"data"`
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	entries, pagination, err := h.service.List(r.Context(), orgID, page, perPage)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	out := listResponse{
		Data:       make([]entryResponse, 0, len(entries)),
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	}
	for _, e := range entries {
		out.Data = append(out.Data, toEntryResponse(e))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}
