package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/registry"
)

// VehicleServiceInterface は車両ハンドラーが必要とするサービスインターフェース。
type VehicleServiceInterface interface {
	List(ctx context.Context) ([]*model.Vehicle, error)
	Search(ctx context.Context, query string) ([]*model.Vehicle, error)
	Get(ctx context.Context, id string) (*model.Vehicle, error)
	Create(ctx context.Context, in registry.VehicleInput) (*model.Vehicle, error)
	Update(ctx context.Context, id string, patch registry.VehiclePatch) (*model.Vehicle, error)
	ToggleWanted(ctx context.Context, id string) (*model.Vehicle, error)
	Delete(ctx context.Context, id string) error
}

// VehicleHandler は車両登録のHTTPハンドラー。
type VehicleHandler struct {
	service VehicleServiceInterface
}

// NewVehicleHandler はVehicleHandlerを生成する。
func NewVehicleHandler(service VehicleServiceInterface) *VehicleHandler {
	return &VehicleHandler{service: service}
}

// List は所有者付きの全車両を返す。
// GET /api/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(vehicles))
}

// Search はパテンテ・所有者名・所有者RUTで車両を検索する。
// GET /api/vehicles/search?query=xxx
func (h *VehicleHandler) Search(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Get は車両の詳細を返す。
// GET /api/vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Create は車両を登録する。所有者はRUTで指定する。
// POST /api/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in registry.VehicleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	vehicle, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// Update は車両情報を部分更新する。
// PUT /api/vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch registry.VehiclePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	vehicle, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// ToggleWanted は車両の手配フラグを反転する。
// PATCH /api/vehicles/{id}/wanted
func (h *VehicleHandler) ToggleWanted(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.ToggleWanted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Delete は車両と紐付く罰金を削除する。
// DELETE /api/vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Vehículo eliminado correctamente."})
}
