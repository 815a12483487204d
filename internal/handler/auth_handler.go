package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/auth"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/middleware"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/security"
)

// stateCookieMaxAge はOAuth state Cookieの有効期間。
const stateCookieMaxAge = 10 * time.Minute

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// CookieCodec は署名付きCookie値のエンコードとデコードを行う。
// security.CookieCodecが実装する。
type CookieCodec interface {
	Encode(name, value string) (string, error)
	Decode(name, encoded string) (string, error)
}

// AdminChecker は管理者許可リストの判定を行う。authz.Policyが実装する。
type AdminChecker interface {
	IsAdmin(externalID string) bool
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はDiscord OAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	cookies CookieCodec
	admins  AdminChecker
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, cookies CookieCodec, admins AdminChecker, config AuthHandlerConfig) *AuthHandler {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &AuthHandler{
		service: service,
		cookies: cookies,
		admins:  admins,
		config:  config,
	}
}

// userResponse は /auth/user のレスポンス。
type userResponse struct {
	ExternalID     string                  `json:"externalId"`
	Username       string                  `json:"username"`
	Discriminator  string                  `json:"discriminator"`
	Avatar         string                  `json:"avatar"`
	Guilds         []model.GuildMembership `json:"guilds"`
	EffectiveRoles []string                `json:"effectiveRoles"`
	IsAdmin        bool                    `json:"isAdmin"`
}

// Login はDiscord OAuthフローを開始する。
// GET /auth/discord
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	signed, err := h.cookies.Encode(security.StateCookieName, state)
	if err != nil {
		slog.Error("failed to sign oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     security.StateCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/discord/callback?code=xxx&state=yyy
// プロバイダー側の失敗は /?login=failed、保存処理の失敗は /?login=error へリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// stateクッキーは結果に関わらず削除する
	h.clearCookie(w, security.StateCookieName, "")

	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error", slog.String("error", providerErr))
		h.redirect(w, r, "/?login=failed")
		return
	}

	// 1. stateの検証（CSRF対策）
	if !h.validState(r, query.Get("state")) {
		slog.Warn("oauth state mismatch")
		h.redirect(w, r, "/?login=failed")
		return
	}

	// 2. 認可コードの取得
	code := query.Get("code")
	if code == "" {
		slog.Warn("oauth callback without code")
		h.redirect(w, r, "/?login=failed")
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		if errors.Is(err, auth.ErrAuthProvider) {
			slog.Warn("oauth login failed", slog.String("error", err.Error()))
			h.redirect(w, r, "/?login=failed")
			return
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirect(w, r, "/?login=error")
		return
	}

	// 4. 署名付きセッションCookieを設定（HTTP Only）
	signed, err := h.cookies.Encode(security.SessionCookieName, session.ID)
	if err != nil {
		slog.Error("failed to sign session cookie", slog.String("error", err.Error()))
		h.redirect(w, r, "/?login=error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     security.SessionCookieName,
		Value:    signed,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.redirect(w, r, "/dashboard")
}

// Logout はセッションを破棄する。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.clearCookie(w, security.SessionCookieName, h.config.CookieDomain)
	h.redirect(w, r, "/")
}

// User は現在のログインユーザー情報を返す。
// GET /auth/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteUnauthenticated(w)
		return
	}

	guilds := user.Guilds
	if guilds == nil {
		guilds = []model.GuildMembership{}
	}
	writeJSON(w, http.StatusOK, userResponse{
		ExternalID:     user.ExternalID,
		Username:       user.Username,
		Discriminator:  user.Discriminator,
		Avatar:         user.Avatar,
		Guilds:         guilds,
		EffectiveRoles: model.NormalizeRoles(user.EffectiveRoles),
		IsAdmin:        h.admins.IsAdmin(user.ExternalID),
	})
}

func (h *AuthHandler) validState(r *http.Request, state string) bool {
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(security.StateCookieName)
	if err != nil {
		return false
	}
	expected, err := h.cookies.Decode(security.StateCookieName, cookie.Value)
	if err != nil {
		return false
	}
	return expected == state
}

func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.config.BaseURL+path, http.StatusFound)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
