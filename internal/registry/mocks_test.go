package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

// --- モック定義 ---

type mockPersonaRepo struct {
	listFn       func(ctx context.Context) ([]*model.Persona, error)
	searchFn     func(ctx context.Context, query string) ([]*model.Persona, error)
	listWantedFn func(ctx context.Context, limit int) ([]*model.Persona, error)
	findByIDFn   func(ctx context.Context, id string) (*model.Persona, error)
	findByRUTFn  func(ctx context.Context, rut string) (*model.Persona, error)
	createFn     func(ctx context.Context, p *model.Persona) error
	updateFn     func(ctx context.Context, p *model.Persona) error
	deleteFn     func(ctx context.Context, id string) (bool, error)
}

func (m *mockPersonaRepo) List(ctx context.Context) ([]*model.Persona, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Persona{}, nil
}
func (m *mockPersonaRepo) Search(ctx context.Context, query string) ([]*model.Persona, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return []*model.Persona{}, nil
}
func (m *mockPersonaRepo) ListWanted(ctx context.Context, limit int) ([]*model.Persona, error) {
	if m.listWantedFn != nil {
		return m.listWantedFn(ctx, limit)
	}
	return []*model.Persona{}, nil
}
func (m *mockPersonaRepo) FindByID(ctx context.Context, id string) (*model.Persona, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockPersonaRepo) FindByRUT(ctx context.Context, rut string) (*model.Persona, error) {
	if m.findByRUTFn != nil {
		return m.findByRUTFn(ctx, rut)
	}
	return nil, nil
}
func (m *mockPersonaRepo) Create(ctx context.Context, p *model.Persona) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}
func (m *mockPersonaRepo) Update(ctx context.Context, p *model.Persona) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}
func (m *mockPersonaRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

type mockVehicleRepo struct {
	listFn         func(ctx context.Context) ([]*model.Vehicle, error)
	searchFn       func(ctx context.Context, query string) ([]*model.Vehicle, error)
	listRecentFn   func(ctx context.Context, limit int) ([]*model.Vehicle, error)
	findByIDFn     func(ctx context.Context, id string) (*model.Vehicle, error)
	findByPlateFn  func(ctx context.Context, plate string) (*model.Vehicle, error)
	countByOwnerFn func(ctx context.Context, ownerID string) (int, error)
	createFn       func(ctx context.Context, v *model.Vehicle) error
	updateFn       func(ctx context.Context, v *model.Vehicle) error
	deleteFn       func(ctx context.Context, id string) (bool, error)
}

func (m *mockVehicleRepo) List(ctx context.Context) ([]*model.Vehicle, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Vehicle{}, nil
}
func (m *mockVehicleRepo) Search(ctx context.Context, query string) ([]*model.Vehicle, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return []*model.Vehicle{}, nil
}
func (m *mockVehicleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Vehicle, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return []*model.Vehicle{}, nil
}
func (m *mockVehicleRepo) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockVehicleRepo) FindByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	if m.findByPlateFn != nil {
		return m.findByPlateFn(ctx, plate)
	}
	return nil, nil
}
func (m *mockVehicleRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	if m.countByOwnerFn != nil {
		return m.countByOwnerFn(ctx, ownerID)
	}
	return 0, nil
}
func (m *mockVehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	if m.createFn != nil {
		return m.createFn(ctx, v)
	}
	return nil
}
func (m *mockVehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, v)
	}
	return nil
}
func (m *mockVehicleRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

type mockFineRepo struct {
	createFn        func(ctx context.Context, f *model.Fine) error
	listByVehicleFn func(ctx context.Context, vehicleID string) ([]*model.Fine, error)
	findByIDFn      func(ctx context.Context, vehicleID, fineID string) (*model.Fine, error)
	updateFn        func(ctx context.Context, f *model.Fine) error
	deleteFn        func(ctx context.Context, vehicleID, fineID string) (bool, error)
	listRecentFn    func(ctx context.Context, limit int) ([]*model.RecentFine, error)
}

func (m *mockFineRepo) Create(ctx context.Context, f *model.Fine) error {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	return nil
}
func (m *mockFineRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error) {
	if m.listByVehicleFn != nil {
		return m.listByVehicleFn(ctx, vehicleID)
	}
	return []*model.Fine{}, nil
}
func (m *mockFineRepo) FindByID(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, vehicleID, fineID)
	}
	return nil, nil
}
func (m *mockFineRepo) Update(ctx context.Context, f *model.Fine) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, f)
	}
	return nil
}
func (m *mockFineRepo) Delete(ctx context.Context, vehicleID, fineID string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, vehicleID, fineID)
	}
	return true, nil
}
func (m *mockFineRepo) ListRecent(ctx context.Context, limit int) ([]*model.RecentFine, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return []*model.RecentFine{}, nil
}

// trimSanitizer は前後の空白除去とscriptタグの除去のみを行う。
type trimSanitizer struct{}

func (trimSanitizer) Clean(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "<script>", ""))
}

type stubURLValidator struct {
	err error
}

func (s stubURLValidator) ValidateURL(string) error { return s.err }

// --- compile-time interface checks ---

var (
	_ repository.PersonaRepository = (*mockPersonaRepo)(nil)
	_ repository.VehicleRepository = (*mockVehicleRepo)(nil)
	_ repository.FineRepository    = (*mockFineRepo)(nil)
)

// --- テストヘルパー ---

const (
	testPersonaID = "6f1b3c2e-8a41-4d8e-9b6a-0c2f5d7e9a11"
	testVehicleID = "1d2e3f40-5a6b-4c7d-8e9f-a0b1c2d3e4f5"
	testFineID    = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var (
	errDB     = errors.New("db error")
	fixedTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedTime }

func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// apiErrorCode はエラーがAPIErrorの場合にそのコードを返す。
func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
