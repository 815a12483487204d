package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// defaultLiveQueryTimeout はライブ問い合わせのタイムアウトの既定値。
const defaultLiveQueryTimeout = 5 * time.Second

// ResolverConfig はロール解決の設定。起動時に1回構築し、変更しない。
type ResolverConfig struct {
	// TargetGuildID はロールを参照するギルド。空の場合は常に空集合に解決する。
	TargetGuildID string
	// RoleMap はDiscordロールIDからアプリケーションロール名への対応表。
	RoleMap map[string]string
	// MemberRole はギルド所属が確認できたユーザーに付与するロール。空なら付与しない。
	MemberRole string
	// LiveQueryTimeout はライブ問い合わせ1回あたりのタイムアウト。
	LiveQueryTimeout time.Duration
}

// RoleResolver はExternalIdentityからEffectiveRolesを決定する。
// ライブ問い合わせが構成されていればその結果のみを使い、失敗時は空集合に解決する。
// 埋め込みロールはライブ問い合わせが構成されていない場合にだけ使う。
// 管理者許可リストはここでは扱わない（認可時に評価する）。
type RoleResolver struct {
	config  ResolverConfig
	live    MemberRoleFetcher
	metrics metrics.MetricsCollector
}

// NewRoleResolver はRoleResolverを生成する。
// liveがnilの場合は埋め込みロールのみを使う。
func NewRoleResolver(config ResolverConfig, live MemberRoleFetcher, mc metrics.MetricsCollector) *RoleResolver {
	if config.LiveQueryTimeout <= 0 {
		config.LiveQueryTimeout = defaultLiveQueryTimeout
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &RoleResolver{config: config, live: live, metrics: mc}
}

// Resolve はidentityのEffectiveRolesを返す。エラーは返さず、失敗時は空集合に縮退する。
// 返すスライスは重複除去・ソート済み。
func (r *RoleResolver) Resolve(ctx context.Context, identity *ExternalIdentity) []string {
	if identity == nil || r.config.TargetGuildID == "" {
		r.metrics.RecordRoleResolution(metrics.RoleSourceNone)
		return []string{}
	}

	embedded, inGuild := r.embeddedRoles(identity)
	raw, member, source := embedded, inGuild, metrics.RoleSourceEmbedded

	if r.live != nil {
		liveRoles, err := r.fetchLive(ctx, identity.ExternalID)
		switch {
		case err == nil:
			raw, member, source = liveRoles, true, metrics.RoleSourceLive
		case errors.Is(err, ErrMemberNotFound):
			raw, member, source = nil, false, metrics.RoleSourceLive
		default:
			slog.Warn("ロールのライブ問い合わせに失敗しました。ロールなしで続行します",
				slog.String("user_id", identity.ExternalID),
				slog.String("guild_id", r.config.TargetGuildID),
				slog.Int("embedded_roles", len(embedded)),
				slog.String("error", err.Error()),
			)
			raw, member, source = nil, false, metrics.RoleSourceLiveFailed
		}
	}

	if source == metrics.RoleSourceEmbedded && !inGuild {
		source = metrics.RoleSourceNone
	}

	roles := r.expand(raw, member)
	r.metrics.RecordRoleResolution(source)
	slog.Info("role resolution completed",
		slog.String("user_id", identity.ExternalID),
		slog.String("source", source),
		slog.Int("roles_count", len(roles)),
	)
	return roles
}

// embeddedRoles は対象ギルドのロール一覧と、ギルドに所属しているかを返す。
func (r *RoleResolver) embeddedRoles(identity *ExternalIdentity) ([]string, bool) {
	for _, g := range identity.Guilds {
		if g.ID == r.config.TargetGuildID {
			return g.Roles, true
		}
	}
	return nil, false
}

// fetchLive はタイムアウト付きでライブ問い合わせを行う。リトライはしない。
func (r *RoleResolver) fetchLive(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.LiveQueryTimeout)
	defer cancel()
	return r.live.FetchMemberRoles(ctx, r.config.TargetGuildID, userID)
}

// expand は生のロールIDにアプリケーションロール名とメンバーロールを加えて正規化する。
func (r *RoleResolver) expand(raw []string, member bool) []string {
	roles := make([]string, 0, len(raw)*2+1)
	for _, id := range raw {
		roles = append(roles, id)
		if name, ok := r.config.RoleMap[id]; ok {
			roles = append(roles, name)
		}
	}
	if member && r.config.MemberRole != "" {
		roles = append(roles, r.config.MemberRole)
	}
	return model.NormalizeRoles(roles)
}
