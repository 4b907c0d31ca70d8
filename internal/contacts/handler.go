package contacts

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

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
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

type createContactRequest struct {
	Name    string `json:"name"`
	CUIT    string `json:"cuit"`
	Address string `json:"address"`
}

type contactResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	CUIT    string `json:"cuit,omitempty"`
	Address string `json:"address,omitempty"`
}

func toContactResponse(c Contact) contactResponse {
	return contactResponse{ID: c.ID, Name: c.Name, CUIT: c.CUIT, Address: c.Address}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		shared.RespondError(w, h.logger, shared.Validationf("contact name is required"))
		return
	}
	contact, err := h.repo.Insert(r.Context(), Contact{
		OrgID:   orgID,
		Name:    strings.TrimSpace(req.Name),
		CUIT:    strings.TrimSpace(req.CUIT),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toContactResponse(contact))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := shared.OrgFromContext(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Validationf("invalid contact id"))
		return
	}
	contact, err := h.repo.Get(r.Context(), orgID, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toContactResponse(contact))
}
