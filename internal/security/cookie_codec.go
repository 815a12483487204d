package security

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

// Cookie名。
const (
	SessionCookieName = "session_id"
	StateCookieName   = "oauth_state"
)

// CookieCodec はCookie値のHMAC署名と検証を行う。
// 値の暗号化は行わない（セッションIDとstateは推測困難な乱数のため）。
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec はSESSION_SECRETから署名鍵を導出してCookieCodecを生成する。
// maxAgeは署名に含まれるタイムスタンプの有効期間。
func NewCookieCodec(secret string, maxAge time.Duration) *CookieCodec {
	hashKey := sha256.Sum256([]byte(secret))
	sc := securecookie.New(hashKey[:], nil)
	sc.MaxAge(int(maxAge / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &CookieCodec{sc: sc}
}

// Encode はCookie名に紐付けて値に署名する。
func (c *CookieCodec) Encode(name, value string) (string, error) {
	encoded, err := c.sc.Encode(name, value)
	if err != nil {
		return "", fmt.Errorf("failed to encode cookie %s: %w", name, err)
	}
	return encoded, nil
}

// Decode は署名を検証して元の値を返す。
// 改ざん、期限切れ、別名のCookieの値はエラーになる。
func (c *CookieCodec) Decode(name, encoded string) (string, error) {
	var value string
	if err := c.sc.Decode(name, encoded, &value); err != nil {
		return "", fmt.Errorf("failed to decode cookie %s: %w", name, err)
	}
	return value, nil
}
