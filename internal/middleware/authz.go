package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/authz"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// Authorizer はユーザーがロール要件を満たすかを判定する。
// authz.Policyが実装する。
type Authorizer interface {
	Evaluate(user *model.User, req authz.Requirement) authz.Decision
}

// Gate はルートごとのロール要件をHTTPレベルで強制する。
// セッションミドルウェアの後に配置する。
type Gate struct {
	policy    Authorizer
	metrics   metrics.MetricsCollector
	loginPath string
}

// NewGate はGateを生成する。loginPathはページルートで未認証時のリダイレクト先。
func NewGate(policy Authorizer, mc metrics.MetricsCollector, loginPath string) *Gate {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Gate{policy: policy, metrics: mc, loginPath: loginPath}
}

// RequireAPI はAPIルート用のミドルウェアを返す。
// 未認証は401、要件不足は403のJSONを返し、ハンドラーは実行しない。
// 403のメッセージには必要なロールを含めない。
func (g *Gate) RequireAPI(req authz.Requirement) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch g.decide(r, req) {
			case authz.Unauthenticated:
				WriteUnauthenticated(w)
			case authz.Forbidden:
				WriteForbidden(w)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequirePage はページルート用のミドルウェアを返す。
// 未認証はログインへ302リダイレクト、要件不足は403を返す。
func (g *Gate) RequirePage(req authz.Requirement) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch g.decide(r, req) {
			case authz.Unauthenticated:
				http.Redirect(w, r, g.loginPath, http.StatusFound)
			case authz.Forbidden:
				http.Error(w, model.NewForbiddenError().Message, http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (g *Gate) decide(r *http.Request, req authz.Requirement) authz.Decision {
	user := UserFromContext(r.Context())
	decision := g.policy.Evaluate(user, req)
	g.metrics.RecordAuthzDecision(decision.String())

	if decision == authz.Forbidden {
		slog.Info("authorization denied",
			slog.String("user_id", user.ExternalID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	return decision
}
