package model

import (
	"slices"
	"time"
)

// GuildMembership はDiscordギルド（サーバー）への所属情報を表す。
// Rolesはプロバイダーがロール一覧を返した場合のみ設定される。
type GuildMembership struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// User はログイン済みのアプリケーションユーザーを表す。
// ExternalIDはDiscordのユーザーIDで、グローバルに一意な永続キー。
// EffectiveRolesはログインのたびに全置換される（マージしない）。
type User struct {
	ExternalID     string
	Username       string
	Discriminator  string
	Avatar         string
	Guilds         []GuildMembership
	EffectiveRoles []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasAnyRole はユーザーのEffectiveRolesが指定ロールのいずれかを含むかを返す。
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(u.EffectiveRoles, r) {
			return true
		}
	}
	return false
}

// Session はユーザーのログインセッションを表す。
// ロール情報は持たず、リクエストごとにユーザーレコードを再取得する。
type Session struct {
	ID        string
	UserID    string // users.external_id
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NormalizeRoles はロールトークンを重複除去・ソートした新しいスライスを返す。
// 空文字列は除外する。nilではなく常に非nilのスライスを返す。
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
