package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/authz"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/middleware"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/registry"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/security"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://discord.com/oauth2/authorize?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockPersonaService struct {
	listFn         func(ctx context.Context) ([]*model.Persona, error)
	searchFn       func(ctx context.Context, query string) ([]*model.Persona, error)
	getFn          func(ctx context.Context, id string) (*model.Persona, error)
	createFn       func(ctx context.Context, in registry.PersonaInput) (*model.Persona, error)
	updateFn       func(ctx context.Context, id string, patch registry.PersonaPatch) (*model.Persona, error)
	deleteFn       func(ctx context.Context, id string) error
	markWantedFn   func(ctx context.Context, id string, info model.WantedInfo) (*model.Persona, error)
	unmarkWantedFn func(ctx context.Context, id string) (*model.Persona, error)
}

func (m *mockPersonaService) List(ctx context.Context) ([]*model.Persona, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPersonaService) Search(ctx context.Context, query string) ([]*model.Persona, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

func (m *mockPersonaService) Get(ctx context.Context, id string) (*model.Persona, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewPersonNotFoundError()
}

func (m *mockPersonaService) Create(ctx context.Context, in registry.PersonaInput) (*model.Persona, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Persona{ID: "p1", FullName: in.FullName, RUT: in.RUT}, nil
}

func (m *mockPersonaService) Update(ctx context.Context, id string, patch registry.PersonaPatch) (*model.Persona, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &model.Persona{ID: id}, nil
}

func (m *mockPersonaService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPersonaService) MarkWanted(ctx context.Context, id string, info model.WantedInfo) (*model.Persona, error) {
	if m.markWantedFn != nil {
		return m.markWantedFn(ctx, id, info)
	}
	return &model.Persona{ID: id, Wanted: true, WantedReason: info.Reason}, nil
}

func (m *mockPersonaService) UnmarkWanted(ctx context.Context, id string) (*model.Persona, error) {
	if m.unmarkWantedFn != nil {
		return m.unmarkWantedFn(ctx, id)
	}
	return &model.Persona{ID: id}, nil
}

type mockVehicleService struct {
	listFn         func(ctx context.Context) ([]*model.Vehicle, error)
	searchFn       func(ctx context.Context, query string) ([]*model.Vehicle, error)
	getFn          func(ctx context.Context, id string) (*model.Vehicle, error)
	createFn       func(ctx context.Context, in registry.VehicleInput) (*model.Vehicle, error)
	updateFn       func(ctx context.Context, id string, patch registry.VehiclePatch) (*model.Vehicle, error)
	toggleWantedFn func(ctx context.Context, id string) (*model.Vehicle, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (m *mockVehicleService) List(ctx context.Context) ([]*model.Vehicle, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockVehicleService) Search(ctx context.Context, query string) ([]*model.Vehicle, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, model.NewNoVehicleMatchError()
}

func (m *mockVehicleService) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewVehicleNotFoundError()
}

func (m *mockVehicleService) Create(ctx context.Context, in registry.VehicleInput) (*model.Vehicle, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Vehicle{ID: "v1", Plate: in.Plate}, nil
}

func (m *mockVehicleService) Update(ctx context.Context, id string, patch registry.VehiclePatch) (*model.Vehicle, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &model.Vehicle{ID: id}, nil
}

func (m *mockVehicleService) ToggleWanted(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.toggleWantedFn != nil {
		return m.toggleWantedFn(ctx, id)
	}
	return &model.Vehicle{ID: id, Wanted: true}, nil
}

func (m *mockVehicleService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockFineService struct {
	addFn      func(ctx context.Context, in registry.FineInput) (*model.Fine, error)
	listFn     func(ctx context.Context, vehicleID string) ([]*model.Fine, error)
	updateFn   func(ctx context.Context, vehicleID, fineID string, patch registry.FinePatch) (*model.Fine, error)
	markPaidFn func(ctx context.Context, vehicleID, fineID string) (*model.Fine, error)
	deleteFn   func(ctx context.Context, vehicleID, fineID string) error
}

func (m *mockFineService) Add(ctx context.Context, in registry.FineInput) (*model.Fine, error) {
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return &model.Fine{ID: "f1", Reason: in.Reason}, nil
}

func (m *mockFineService) ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error) {
	if m.listFn != nil {
		return m.listFn(ctx, vehicleID)
	}
	return nil, nil
}

func (m *mockFineService) Update(ctx context.Context, vehicleID, fineID string, patch registry.FinePatch) (*model.Fine, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, vehicleID, fineID, patch)
	}
	return &model.Fine{ID: fineID, VehicleID: vehicleID}, nil
}

func (m *mockFineService) MarkPaid(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
	if m.markPaidFn != nil {
		return m.markPaidFn(ctx, vehicleID, fineID)
	}
	return &model.Fine{ID: fineID, VehicleID: vehicleID, Paid: true}, nil
}

func (m *mockFineService) Delete(ctx context.Context, vehicleID, fineID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, vehicleID, fineID)
	}
	return nil
}

type mockPublicService struct {
	recentVehiclesFn func(ctx context.Context) ([]*model.Vehicle, error)
	wantedPeopleFn   func(ctx context.Context) ([]*model.Persona, error)
	recentFinesFn    func(ctx context.Context) ([]*model.RecentFine, error)
}

func (m *mockPublicService) RecentVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	if m.recentVehiclesFn != nil {
		return m.recentVehiclesFn(ctx)
	}
	return nil, nil
}

func (m *mockPublicService) WantedPeople(ctx context.Context) ([]*model.Persona, error) {
	if m.wantedPeopleFn != nil {
		return m.wantedPeopleFn(ctx)
	}
	return nil, nil
}

func (m *mockPublicService) RecentFines(ctx context.Context) ([]*model.RecentFine, error) {
	if m.recentFinesFn != nil {
		return m.recentFinesFn(ctx)
	}
	return nil, nil
}

// sessionTable はセッションIDからユーザーを引く固定テーブル。
type sessionTable map[string]*model.User

func (s sessionTable) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if u, ok := s[sessionID]; ok {
		return u, nil
	}
	return nil, errors.New("unauthenticated")
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- compile-time interface checks ---

var (
	_ AuthServiceInterface         = (*mockAuthService)(nil)
	_ PersonaServiceInterface      = (*mockPersonaService)(nil)
	_ VehicleServiceInterface      = (*mockVehicleService)(nil)
	_ FineServiceInterface         = (*mockFineService)(nil)
	_ PublicServiceInterface       = (*mockPublicService)(nil)
	_ middleware.CurrentUserLoader = sessionTable(nil)
	_ HealthChecker                = (*mockHealthChecker)(nil)
	_ CookieCodec                  = (*security.CookieCodec)(nil)
	_ AdminChecker                 = (*authz.Policy)(nil)
	_ PersonaServiceInterface      = (*registry.PersonaService)(nil)
	_ VehicleServiceInterface      = (*registry.VehicleService)(nil)
	_ FineServiceInterface         = (*registry.FineService)(nil)
	_ PublicServiceInterface       = (*registry.PublicService)(nil)
)

// --- テストヘルパー ---

const testBaseURL = "http://localhost:3000"

func newTestCodec() *security.CookieCodec {
	return security.NewCookieCodec("handler-test-secret", time.Hour)
}

func signedCookie(t *testing.T, codec *security.CookieCodec, name, value string) *http.Cookie {
	t.Helper()
	encoded, err := codec.Encode(name, value)
	if err != nil {
		t.Fatalf("failed to encode cookie: %v", err)
	}
	return &http.Cookie{Name: name, Value: encoded}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withUser はログイン済みユーザーをコンテキストに持つリクエストを返す。
func withUser(r *http.Request, externalID string, roles ...string) *http.Request {
	user := &model.User{ExternalID: externalID, EffectiveRoles: model.NormalizeRoles(roles)}
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}
