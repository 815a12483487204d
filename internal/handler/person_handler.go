package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/registry"
)

// PersonaServiceInterface は人物ハンドラーが必要とするサービスインターフェース。
type PersonaServiceInterface interface {
	List(ctx context.Context) ([]*model.Persona, error)
	Search(ctx context.Context, query string) ([]*model.Persona, error)
	Get(ctx context.Context, id string) (*model.Persona, error)
	Create(ctx context.Context, in registry.PersonaInput) (*model.Persona, error)
	Update(ctx context.Context, id string, patch registry.PersonaPatch) (*model.Persona, error)
	Delete(ctx context.Context, id string) error
	MarkWanted(ctx context.Context, id string, info model.WantedInfo) (*model.Persona, error)
	UnmarkWanted(ctx context.Context, id string) (*model.Persona, error)
}

// PersonHandler は人物登録のHTTPハンドラー。
type PersonHandler struct {
	service PersonaServiceInterface
}

// NewPersonHandler はPersonHandlerを生成する。
func NewPersonHandler(service PersonaServiceInterface) *PersonHandler {
	return &PersonHandler{service: service}
}

// personaMessageResponse はメッセージと更新後の人物を返すレスポンス。
type personaMessageResponse struct {
	Message string         `json:"message"`
	Persona *model.Persona `json:"persona"`
}

// List は全人物を返す。
// GET /api/people
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	personas, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(personas))
}

// Search は名前・RUT・手配理由・手配場所で人物を検索する。
// GET /api/people/search?query=xxx
func (h *PersonHandler) Search(w http.ResponseWriter, r *http.Request) {
	personas, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(personas))
}

// Get は人物の詳細を返す。
// GET /api/people/{id}
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	persona, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, persona)
}

// Create は人物を登録する。
// POST /api/people
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in registry.PersonaInput
	if !decodeJSON(w, r, &in) {
		return
	}

	persona, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, persona)
}

// Update は人物情報を部分更新する。
// PUT /api/people/{id}
func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch registry.PersonaPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	persona, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, persona)
}

// Delete は人物を削除する。車両を所有している場合は409を返す。
// DELETE /api/people/{id}
func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Persona eliminada correctamente."})
}

// MarkWanted は人物を手配中として登録する。
// PUT /api/people/{id}/wanted
func (h *PersonHandler) MarkWanted(w http.ResponseWriter, r *http.Request) {
	var info model.WantedInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	persona, err := h.service.MarkWanted(r.Context(), chi.URLParam(r, "id"), info)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personaMessageResponse{
		Message: "Persona marcada como buscada.",
		Persona: persona,
	})
}

// UnmarkWanted は人物の手配を解除する。
// DELETE /api/people/{id}/wanted
func (h *PersonHandler) UnmarkWanted(w http.ResponseWriter, r *http.Request) {
	persona, err := h.service.UnmarkWanted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personaMessageResponse{
		Message: "Persona marcada como no buscada.",
		Persona: persona,
	})
}

// nonNil はJSONで null ではなく [] を返すため、nilスライスを空スライスに置き換える。
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
