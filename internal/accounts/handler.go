package accounts

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
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

type createAccountRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required"`
	ParentID *int64 `json:"parentId"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID *int64 `json:"parentId,omitempty"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{ID: a.ID, Code: a.Code, Name: a.Name, Type: string(a.Type), ParentID: a.ParentID}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("missing required fields: %v", err))
		return
	}
	created, err := h.service.Create(r.Context(), orgID, CreateInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		ParentID: req.ParentID,
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid account id"))
		return
	}
	a, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toAccountResponse(a))
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
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	shared.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid account id"))
		return
	}
	if err := h.service.Delete(r.Context(), orgID, id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
