// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/auth"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/security"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey      = contextKey("user")
	sessionIDContextKey = contextKey("session_id")
)

// CurrentUserLoader はセッションIDからログインユーザーを取得する。
// auth.Serviceが実装する。
type CurrentUserLoader interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// CookieDecoder は署名付きCookie値を検証して元の値を返す。
type CookieDecoder interface {
	Decode(name, encoded string) (string, error)
}

// NewSessionMiddleware は署名付きセッションCookieからユーザーを1回だけ読み込み、
// リクエストコンテキストに格納するミドルウェアを返す。
// リクエストを拒否することはない。認可判定はRequireAPI/RequirePageが行う。
// Cookieの検証失敗・セッション切れ・ユーザー未登録はすべて未認証として扱う。
func NewSessionMiddleware(loader CurrentUserLoader, decoder CookieDecoder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(security.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, err := decoder.Decode(security.SessionCookieName, cookie.Value)
			if err != nil {
				slog.Debug("invalid session cookie", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDContextKey, sessionID)

			user, err := loader.GetCurrentUser(ctx, sessionID)
			if err != nil {
				// セッション切れ以外（ストア障害など）はwarnで記録する
				if !isPlainUnauthenticated(err) {
					slog.Warn("session lookup failed", slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}

// isPlainUnauthenticated はエラーが単なる未認証（ストア障害を伴わない）かを判定する。
func isPlainUnauthenticated(err error) bool {
	return errors.Is(err, auth.ErrUnauthenticated) && errors.Unwrap(err) == auth.ErrUnauthenticated
}

// UserFromContext はリクエストコンテキストからログインユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// UserIDFromContext はリクエストコンテキストからユーザーの外部IDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ExternalID == "" {
		return "", fmt.Errorf("user not found in context")
	}
	return user.ExternalID, nil
}

// SessionIDFromContext は署名検証済みのセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithUser はコンテキストにログインユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
