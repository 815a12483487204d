package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
)

// MemberRoleFetcher はギルドメンバーの現在のロールIDを問い合わせるインターフェース。
type MemberRoleFetcher interface {
	// FetchMemberRoles は指定ギルドにおけるユーザーのロールIDを返す。
	// メンバーでない場合はErrMemberNotFoundを返す。
	FetchMemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// DiscordBotClient はBotトークンでDiscordのギルドメンバー情報を取得する。
type DiscordBotClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
}

// NewDiscordBotClient はDiscordBotClientを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使う。
func NewDiscordBotClient(baseURL, token string, httpClient *http.Client, mc metrics.MetricsCollector) *DiscordBotClient {
	if baseURL == "" {
		baseURL = defaultDiscordAPIBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &DiscordBotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		metrics:    mc,
	}
}

// FetchMemberRoles は GET /guilds/{guild}/members/{user} でロールIDを取得する。
// 404はErrMemberNotFound、それ以外の200以外はエラーとして返す。
func (c *DiscordBotClient) FetchMemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, url.PathEscape(guildID), url.PathEscape(userID))

	var member discordMember
	start := time.Now()
	err := getDiscordJSON(ctx, c.httpClient, endpoint, "Bot "+c.token, &member)
	c.metrics.RecordDiscordLatency("guild_member", time.Since(start))
	if err != nil {
		var apiErr *DiscordAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}

	if member.Roles == nil {
		member.Roles = []string{}
	}
	return member.Roles, nil
}

// compile-time interface check
var _ MemberRoleFetcher = (*DiscordBotClient)(nil)
