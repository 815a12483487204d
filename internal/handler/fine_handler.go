package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/registry"
)

// FineServiceInterface は罰金ハンドラーが必要とするサービスインターフェース。
type FineServiceInterface interface {
	Add(ctx context.Context, in registry.FineInput) (*model.Fine, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error)
	Update(ctx context.Context, vehicleID, fineID string, patch registry.FinePatch) (*model.Fine, error)
	MarkPaid(ctx context.Context, vehicleID, fineID string) (*model.Fine, error)
	Delete(ctx context.Context, vehicleID, fineID string) error
}

// FineHandler は罰金のHTTPハンドラー。
type FineHandler struct {
	service FineServiceInterface
}

// NewFineHandler はFineHandlerを生成する。
func NewFineHandler(service FineServiceInterface) *FineHandler {
	return &FineHandler{service: service}
}

// fineMessageResponse はメッセージと対象の罰金を返すレスポンス。
type fineMessageResponse struct {
	Message string      `json:"message"`
	Fine    *model.Fine `json:"fine"`
}

// Add はパテンテで指定された車両に罰金を追加する。
// POST /api/vehicles/fines
func (h *FineHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in registry.FineInput
	if !decodeJSON(w, r, &in) {
		return
	}

	fine, err := h.service.Add(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fineMessageResponse{Message: "Multa agregada exitosamente.", Fine: fine})
}

// List は車両の罰金一覧を返す。
// GET /api/vehicles/{id}/fines
func (h *FineHandler) List(w http.ResponseWriter, r *http.Request) {
	fines, err := h.service.ListByVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(fines))
}

// Update は罰金を部分更新する。
// PUT /api/vehicles/{id}/fines/{fineId}
func (h *FineHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch registry.FinePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	fine, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fineId"), patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fineMessageResponse{Message: "Multa actualizada exitosamente.", Fine: fine})
}

// MarkPaid は罰金を支払済みにする。
// PUT /api/vehicles/{id}/fines/{fineId}/pay
func (h *FineHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	fine, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fineId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fineMessageResponse{Message: "Multa marcada como pagada.", Fine: fine})
}

// Delete は罰金を削除する。
// DELETE /api/vehicles/{id}/fines/{fineId}
func (h *FineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fineId")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Multa eliminada correctamente."})
}
