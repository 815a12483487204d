package handler

import (
	"context"
	"net/http"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PublicServiceInterface は公開ハンドラーが必要とするサービスインターフェース。
type PublicServiceInterface interface {
	RecentVehicles(ctx context.Context) ([]*model.Vehicle, error)
	WantedPeople(ctx context.Context) ([]*model.Persona, error)
	RecentFines(ctx context.Context) ([]*model.RecentFine, error)
}

// PublicHandler はログイン不要の公開一覧を返す。
type PublicHandler struct {
	service PublicServiceInterface
}

// NewPublicHandler はPublicHandlerを生成する。
func NewPublicHandler(service PublicServiceInterface) *PublicHandler {
	return &PublicHandler{service: service}
}

// RecentVehicles GET /api/public/recent-vehicles
func (h *PublicHandler) RecentVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.RecentVehicles(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(vehicles))
}

// WantedPeople GET /api/public/wanted-people
func (h *PublicHandler) WantedPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.WantedPeople(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(people))
}

// RecentFines GET /api/public/recent-fines
func (h *PublicHandler) RecentFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.service.RecentFines(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(fines))
}
