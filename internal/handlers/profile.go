package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/middleware"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/response"
)

type ProfileService interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
	Update(ctx context.Context, uid string, req dto.UpdateProfileRequest) (models.Profile, error)
}

type profileHandlers struct {
	ResponseHandler response.ResponseHandler
	ProfileSvc      ProfileService
}

func NewProfileHandlers(deps *Deps) *profileHandlers {
	return &profileHandlers{
		ResponseHandler: deps.ResponseHandler,
		ProfileSvc:      deps.ProfileSvc,
	}
}

func (h *profileHandlers) ProfileRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	return r
}

func (h *profileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.ProfileSvc.Get(r.Context(), middleware.UID(r.Context()))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, p)
}

func (h *profileHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var body dto.UpdateProfileRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	p, err := h.ProfileSvc.Update(r.Context(), middleware.UID(r.Context()), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, p)
}
