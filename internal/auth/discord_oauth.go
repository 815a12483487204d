package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

const (
	defaultDiscordAuthURL    = "https://discord.com/oauth2/authorize"
	defaultDiscordTokenURL   = "https://discord.com/api/oauth2/token"
	defaultDiscordAPIBaseURL = "https://discord.com/api/v10"

	// ProviderDiscord はExternalIdentity.Providerに設定されるプロバイダー名。
	ProviderDiscord = "discord"
)

// Discord OAuthスコープ
const (
	scopeIdentify          = "identify"
	scopeGuilds            = "guilds"
	scopeGuildsMembersRead = "guilds.members.read"
)

// DiscordOAuthConfig はDiscord OAuthプロバイダーの設定。
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// TargetGuildIDとEmbeddedRolesが設定された場合、
	// guilds.members.readスコープで対象ギルドのロールをプロフィールに含める。
	TargetGuildID string
	EmbeddedRoles bool

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	APIBaseURL string

	// HTTPClient はトークン交換とAPI呼び出しに使う。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
type DiscordOAuthProvider struct {
	oauth      *oauth2.Config
	apiBaseURL string
	guildID    string
	embedRoles bool
	httpClient *http.Client
	metrics    metrics.MetricsCollector
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(config DiscordOAuthConfig, mc metrics.MetricsCollector) *DiscordOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultDiscordAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultDiscordTokenURL
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultDiscordAPIBaseURL
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	embedRoles := config.EmbeddedRoles && config.TargetGuildID != ""
	scopes := []string{scopeIdentify, scopeGuilds}
	if embedRoles {
		scopes = append(scopes, scopeGuildsMembersRead)
	}

	return &DiscordOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: strings.TrimRight(config.APIBaseURL, "/"),
		guildID:    config.TargetGuildID,
		embedRoles: embedRoles,
		httpClient: config.HTTPClient,
		metrics:    mc,
	}
}

// GetLoginURL はDiscord OAuthの認証URLを生成する。
// スコープにはidentify, guildsを含む。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// discordUser は/users/@meのレスポンス。
type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// discordGuild は/users/@me/guildsのレスポンス要素。
type discordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// discordMember はギルドメンバー情報のレスポンス。
type discordMember struct {
	Roles []string `json:"roles"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、プロフィールとギルド一覧を取得する。
// 返すエラーはすべてErrAuthProviderをラップする。
// 埋め込みロールの取得失敗はログインを妨げず、そのギルドのRolesを空のままにする。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	// 1. 認可コードをアクセストークンに交換
	start := time.Now()
	token, err := p.oauth.Exchange(ctx, code)
	p.metrics.RecordDiscordLatency("token", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange token: %w", ErrAuthProvider, err)
	}

	client := p.oauth.Client(ctx, token)

	// 2. プロフィールを取得
	var user discordUser
	start = time.Now()
	err = getDiscordJSON(ctx, client, p.apiBaseURL+"/users/@me", "", &user)
	p.metrics.RecordDiscordLatency("users_me", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch user profile: %w", ErrAuthProvider, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: empty id in user profile", ErrAuthProvider)
	}

	// 3. ギルド一覧を取得
	var guilds []discordGuild
	start = time.Now()
	err = getDiscordJSON(ctx, client, p.apiBaseURL+"/users/@me/guilds", "", &guilds)
	p.metrics.RecordDiscordLatency("users_me_guilds", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch user guilds: %w", ErrAuthProvider, err)
	}

	identity := &ExternalIdentity{
		ExternalID:    user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		Avatar:        user.Avatar,
		Guilds:        make([]model.GuildMembership, 0, len(guilds)),
		Provider:      ProviderDiscord,
	}
	for _, g := range guilds {
		identity.Guilds = append(identity.Guilds, model.GuildMembership{ID: g.ID, Name: g.Name})
	}

	// 4. 対象ギルドのロールをプロフィールに埋め込む（任意）
	if p.embedRoles {
		p.embedTargetGuildRoles(ctx, client, identity)
	}

	return identity, nil
}

// embedTargetGuildRoles は対象ギルドに所属している場合のみ、そのロール一覧を取得して設定する。
func (p *DiscordOAuthProvider) embedTargetGuildRoles(ctx context.Context, client *http.Client, identity *ExternalIdentity) {
	idx := -1
	for i, g := range identity.Guilds {
		if g.ID == p.guildID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	var member discordMember
	endpoint := p.apiBaseURL + "/users/@me/guilds/" + url.PathEscape(p.guildID) + "/member"
	start := time.Now()
	err := getDiscordJSON(ctx, client, endpoint, "", &member)
	p.metrics.RecordDiscordLatency("users_me_member", time.Since(start))
	if err != nil {
		var apiErr *DiscordAPIError
		attrs := []any{
			slog.String("user_id", identity.ExternalID),
			slog.String("guild_id", p.guildID),
			slog.String("error", err.Error()),
		}
		if errors.As(err, &apiErr) {
			attrs = append(attrs, slog.Int("http_status", apiErr.StatusCode))
		}
		slog.Warn("埋め込みロールの取得に失敗しました", attrs...)
		return
	}

	identity.Guilds[idx].Roles = member.Roles
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
