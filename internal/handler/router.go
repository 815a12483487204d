package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/authz"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/middleware"
)

// LoginPath はページルートで未認証時にリダイレクトする先。
const LoginPath = "/auth/discord"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// インフラ
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ミドルウェア依存
	SessionLoader     middleware.CurrentUserLoader
	Cookies           CookieCodec
	Gate              *middleware.Gate
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              func(http.Handler) http.Handler // nilの場合は検証しない
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	Admins      AdminChecker
	AuthConfig  AuthHandlerConfig

	// 登録データ
	PersonaService PersonaServiceInterface
	VehicleService VehicleServiceInterface
	FineService    FineServiceInterface
	PublicService  PublicServiceInterface

	// HTMLページ
	Pages *PageHandler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Session → Logging → RateLimit(General)
//
// Sessionはリクエストを拒否しない。ルートごとの認可はGateが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.SessionLoader, deps.Cookies))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	gate := deps.Gate
	authHandler := NewAuthHandler(deps.AuthService, deps.Cookies, deps.Admins, deps.AuthConfig)
	personHandler := NewPersonHandler(deps.PersonaService)
	vehicleHandler := NewVehicleHandler(deps.VehicleService)
	fineHandler := NewFineHandler(deps.FineService)
	publicHandler := NewPublicHandler(deps.PublicService)
	pages := deps.Pages
	if pages == nil {
		pages = NewPageHandler("")
	}

	// --- インフラ ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/discord", authHandler.Login)
		r.Get("/discord/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.With(gate.RequireAPI(authz.Authenticated)).Get("/user", authHandler.User)
	})

	// --- 公開API（ログイン不要） ---
	r.Route("/api/public", func(r chi.Router) {
		r.Get("/recent-vehicles", publicHandler.RecentVehicles)
		r.Get("/wanted-people", publicHandler.WantedPeople)
		r.Get("/recent-fines", publicHandler.RecentFines)
	})

	// --- 保護API ---
	// 書き込み系には専用のレート制限を追加する
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.WriteMiddleware())
		if deps.CSRF != nil {
			r.Use(deps.CSRF)
		}

		// 人物
		r.Route("/api/people", func(r chi.Router) {
			r.With(gate.RequireAPI(authz.PersonRead)).Get("/", personHandler.List)
			r.With(gate.RequireAPI(authz.PersonRead)).Get("/search", personHandler.Search)
			r.With(gate.RequireAPI(authz.PersonWrite)).Post("/", personHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.With(gate.RequireAPI(authz.PersonRead)).Get("/", personHandler.Get)
				r.With(gate.RequireAPI(authz.PersonWrite)).Put("/", personHandler.Update)
				r.With(gate.RequireAPI(authz.PersonDelete)).Delete("/", personHandler.Delete)
				r.With(gate.RequireAPI(authz.PersonWrite)).Put("/wanted", personHandler.MarkWanted)
				r.With(gate.RequireAPI(authz.PersonWrite)).Delete("/wanted", personHandler.UnmarkWanted)
			})
		})

		// 車両と罰金
		r.Route("/api/vehicles", func(r chi.Router) {
			r.With(gate.RequireAPI(authz.VehicleRead)).Get("/", vehicleHandler.List)
			r.With(gate.RequireAPI(authz.VehicleRead)).Get("/search", vehicleHandler.Search)
			r.With(gate.RequireAPI(authz.VehicleWrite)).Post("/", vehicleHandler.Create)
			r.With(gate.RequireAPI(authz.VehicleWrite)).Post("/fines", fineHandler.Add)

			r.Route("/{id}", func(r chi.Router) {
				r.With(gate.RequireAPI(authz.VehicleRead)).Get("/", vehicleHandler.Get)
				r.With(gate.RequireAPI(authz.VehicleWrite)).Put("/", vehicleHandler.Update)
				r.With(gate.RequireAPI(authz.VehicleWrite)).Delete("/", vehicleHandler.Delete)
				r.With(gate.RequireAPI(authz.VehicleWrite)).Patch("/wanted", vehicleHandler.ToggleWanted)

				r.With(gate.RequireAPI(authz.VehicleRead)).Get("/fines", fineHandler.List)
				r.Route("/fines/{fineId}", func(r chi.Router) {
					r.Use(gate.RequireAPI(authz.VehicleWrite))
					r.Put("/", fineHandler.Update)
					r.Put("/pay", fineHandler.MarkPaid)
					r.Delete("/", fineHandler.Delete)
				})
			})
		})
	})

	// --- HTMLページ ---
	r.Group(func(r chi.Router) {
		r.Use(gate.RequirePage(authz.Authenticated))
		for _, page := range GatedPages {
			r.Get("/"+page, pages.Page(page))
		}
	})
	r.Get("/", pages.Page("index"))
	r.NotFound(pages.Static)

	return r
}
