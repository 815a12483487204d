package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/authz"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/middleware"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/security"
)

// testRouter はルーター全体を組み立て、セッションID付きリクエストを送る。
type testRouter struct {
	t       *testing.T
	handler http.Handler
	codec   *security.CookieCodec
}

func newTestRouter(t *testing.T, sessions sessionTable, pagesDir string) *testRouter {
	t.Helper()
	codec := newTestCodec()
	policy := authz.NewPolicy([]string{"42"})
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, 1000))
	t.Cleanup(rl.Stop)
	csrf, err := middleware.NewCSRFMiddleware(testBaseURL)
	if err != nil {
		t.Fatalf("NewCSRFMiddleware() error: %v", err)
	}

	deps := &RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		MetricsHandler:    http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "# metrics") }),
		SessionLoader:     sessions,
		Cookies:           codec,
		Gate:              middleware.NewGate(policy, nil, LoginPath),
		CORSAllowedOrigin: testBaseURL,
		RateLimiter:       rl,
		CSRF:              csrf,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService:       &mockAuthService{},
		Admins:            policy,
		AuthConfig:        AuthHandlerConfig{BaseURL: testBaseURL, SessionMaxAge: 3600},
		PersonaService:    &mockPersonaService{},
		VehicleService:    &mockVehicleService{},
		FineService:       &mockFineService{},
		PublicService:     &mockPublicService{},
		Pages:             NewPageHandler(pagesDir),
	}
	return &testRouter{t: t, handler: NewRouter(deps), codec: codec}
}

func (tr *testRouter) do(method, path, sessionID string, body string) *httptest.ResponseRecorder {
	tr.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if sessionID != "" {
		req.AddCookie(signedCookie(tr.t, tr.codec, security.SessionCookieName, sessionID))
	}
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}

func testSessions() sessionTable {
	return sessionTable{
		"sess-pdi":        {ExternalID: "100", EffectiveRoles: []string{"pdi"}},
		"sess-carabinero": {ExternalID: "101", EffectiveRoles: []string{"carabinero"}},
		"sess-muni":       {ExternalID: "102", EffectiveRoles: []string{"muni"}},
		"sess-norole":     {ExternalID: "103", EffectiveRoles: []string{}},
		"sess-admin":      {ExternalID: "42", EffectiveRoles: []string{}},
	}
}

const (
	personBody  = `{"nombreCompleto":"Juan","rut":"12345678-5"}`
	vehicleBody = `{"patente":"ABCD12","marca":"Toyota","modelo":"Yaris","anio":2020,"color":"Rojo","propietarioRut":"12345678-5"}`
	fineBody    = `{"patente":"ABCD12","motivo":"x","monto":1,"lugar":"y"}`
)

func TestRouter_UnauthenticatedAPIReturns401(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/people"},
		{http.MethodGet, "/api/vehicles"},
		{http.MethodGet, "/api/vehicles/v1/fines"},
		{http.MethodPost, "/api/vehicles/fines"},
		{http.MethodDelete, "/api/people/p1"},
		{http.MethodGet, "/auth/user"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := tr.do(p.method, p.path, "", "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}

	// 未知のセッションIDも未認証扱い（500にしない）
	if rec := tr.do(http.MethodGet, "/api/vehicles", "sess-unknown", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown session: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// クロスサイトからの書き込みはロールに関係なく拒否される
func TestRouter_CrossSiteWriteRejected(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	send := func(origin string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/vehicles", strings.NewReader(vehicleBody))
		req.Header.Set("Origin", origin)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		req.AddCookie(signedCookie(t, tr.codec, security.SessionCookieName, "sess-carabinero"))
		rec := httptest.NewRecorder()
		tr.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("https://evil.example"); got != http.StatusForbidden {
		t.Errorf("cross-site POST: status = %d, want %d", got, http.StatusForbidden)
	}
	if got := send(testBaseURL); got != http.StatusCreated {
		t.Errorf("trusted origin POST: status = %d, want %d", got, http.StatusCreated)
	}
}

// pdiロールは車両閲覧・人物操作が可能で、車両・罰金の書き込みはできない
func TestRouter_PDIScenario(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/vehicles", "", http.StatusOK},
		{http.MethodGet, "/api/vehicles/v1/fines", "", http.StatusOK},
		{http.MethodGet, "/api/people", "", http.StatusOK},
		{http.MethodPost, "/api/people", personBody, http.StatusCreated},
		{http.MethodDelete, "/api/people/p1", "", http.StatusOK},
		{http.MethodPut, "/api/people/p1/wanted", `{"motivo_busqueda":"Robo"}`, http.StatusOK},
		{http.MethodPost, "/api/vehicles", vehicleBody, http.StatusForbidden},
		{http.MethodPost, "/api/vehicles/fines", fineBody, http.StatusForbidden},
		{http.MethodPut, "/api/vehicles/v1/fines/f1/pay", "", http.StatusForbidden},
		{http.MethodPatch, "/api/vehicles/v1/wanted", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := tr.do(tt.method, tt.path, "sess-pdi", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRouter_RoleMatrix(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	tests := []struct {
		session, method, path, body string
		want                        int
	}{
		{"sess-muni", http.MethodGet, "/api/people", "", http.StatusForbidden},
		{"sess-muni", http.MethodPost, "/api/vehicles", vehicleBody, http.StatusCreated},
		{"sess-muni", http.MethodPost, "/api/vehicles/fines", fineBody, http.StatusCreated},
		{"sess-carabinero", http.MethodDelete, "/api/people/p1", "", http.StatusForbidden},
		{"sess-carabinero", http.MethodPost, "/api/people", personBody, http.StatusCreated},
		{"sess-carabinero", http.MethodDelete, "/api/vehicles/v1/fines/f1", "", http.StatusOK},
		{"sess-norole", http.MethodGet, "/api/vehicles", "", http.StatusForbidden},
		{"sess-norole", http.MethodGet, "/auth/user", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.session+" "+tt.method+" "+tt.path, func(t *testing.T) {
			if rec := tr.do(tt.method, tt.path, tt.session, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// 管理者許可リストのユーザーはロールなしで全ルートにアクセスできる
func TestRouter_AdminScenario(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/vehicles", "", http.StatusOK},
		{http.MethodGet, "/api/people", "", http.StatusOK},
		{http.MethodDelete, "/api/people/p1", "", http.StatusOK},
		{http.MethodPost, "/api/vehicles", vehicleBody, http.StatusCreated},
		{http.MethodPut, "/api/vehicles/v1/fines/f1/pay", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := tr.do(tt.method, tt.path, "sess-admin", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := tr.do(http.MethodGet, "/auth/user", "sess-admin", "")
	if !strings.Contains(rec.Body.String(), `"isAdmin":true`) {
		t.Errorf("/auth/user body = %s, want isAdmin true", rec.Body.String())
	}
}

func TestRouter_PublicRoutesNeedNoSession(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	for _, path := range []string{"/api/public/recent-vehicles", "/api/public/wanted-people", "/api/public/recent-fines", "/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			if rec := tr.do(http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestRouter_Pages(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"index.html":     "<h1>inicio</h1>",
		"dashboard.html": "<h1>panel</h1>",
		"404.html":       "<h1>no encontrado</h1>",
		"css/app.css":    "body{}",
	} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tr := newTestRouter(t, testSessions(), dir)

	t.Run("未認証は/auth/discordへリダイレクト", func(t *testing.T) {
		rec := tr.do(http.MethodGet, "/dashboard", "", "")
		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
		}
		if loc := rec.Header().Get("Location"); loc != LoginPath {
			t.Errorf("Location = %q, want %q", loc, LoginPath)
		}
	})

	t.Run("ログイン済みはページを返す", func(t *testing.T) {
		rec := tr.do(http.MethodGet, "/dashboard", "sess-norole", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "panel") {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("トップページは公開", func(t *testing.T) {
		rec := tr.do(http.MethodGet, "/", "", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "inicio") {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("静的ファイル", func(t *testing.T) {
		if rec := tr.do(http.MethodGet, "/css/app.css", "", ""); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("ゲート対象ページのHTMLファイルは直接配信しない", func(t *testing.T) {
		for _, p := range []string{"/dashboard.html", "/DASHBOARD.html", "/css/../dashboard.html"} {
			for _, sess := range []string{"", "sess-norole"} {
				rec := tr.do(http.MethodGet, p, sess, "")
				if rec.Code != http.StatusNotFound || strings.Contains(rec.Body.String(), "panel") {
					t.Errorf("GET %s (session %q): status = %d, body = %s", p, sess, rec.Code, rec.Body.String())
				}
			}
		}
	})

	t.Run("存在しないパスは404ページ", func(t *testing.T) {
		rec := tr.do(http.MethodGet, "/no-such-page", "", "")
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "no encontrado") {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	tr := newTestRouter(t, testSessions(), "")

	rec := tr.do(http.MethodGet, "/api/public/recent-fines", "", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be applied")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("API responses should not be cached")
	}
}

// ロール名はユーザーモデルの正規化済みロールと比較される
func TestRouter_RolesAreNormalizedTokens(t *testing.T) {
	sessions := sessionTable{
		"sess": {ExternalID: "200", EffectiveRoles: model.NormalizeRoles([]string{"pdi", "pdi", ""})},
	}
	tr := newTestRouter(t, sessions, "")

	if rec := tr.do(http.MethodDelete, "/api/people/p1", "sess", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
