package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッションストアの種類。
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Discord OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string
	DiscordAPIBaseURL   string

	// ロール解決
	TargetGuildID    string
	BotToken         string
	EmbeddedRoles    bool              // guilds.members.readスコープでプロフィールにロールを含める
	RoleMap          map[string]string // DiscordロールID -> アプリケーションロール名
	MemberRole       string            // ギルド所属のみで付与するロール（空なら無効）
	RoleQueryTimeout time.Duration

	// 管理者許可リスト（DiscordユーザーID）
	AdminUserIDs []string

	// Session
	SessionSecret          string
	SessionTTL             time.Duration
	SessionStore           string
	SessionCleanupInterval time.Duration

	// Redis（SESSION_STORE=redis の場合のみ使用）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitWrite   int

	// Server
	ServerPort string
	BaseURL    string
	PublicDir  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := []struct {
		key string
		dst *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"DISCORD_CLIENT_ID", &cfg.DiscordClientID},
		{"DISCORD_CLIENT_SECRET", &cfg.DiscordClientSecret},
		{"CALLBACK_URL", &cfg.DiscordRedirectURL},
		{"SESSION_SECRET", &cfg.SessionSecret},
		{"BASE_URL", &cfg.BaseURL},
	}
	for _, r := range required {
		*r.dst = os.Getenv(r.key)
		if *r.dst == "" {
			missing = append(missing, r.key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	roleMap, err := ParseRoleMap(os.Getenv("DISCORD_ROLE_MAP"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISCORD_ROLE_MAP: %w", err)
	}
	cfg.RoleMap = roleMap

	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStorePostgres))
	if cfg.SessionStore != SessionStorePostgres && cfg.SessionStore != SessionStoreRedis {
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (allowed: %s, %s)", cfg.SessionStore, SessionStorePostgres, SessionStoreRedis)
	}

	// Optional fields with defaults
	cfg.DiscordAPIBaseURL = strings.TrimRight(getEnvString("DISCORD_API_BASE_URL", "https://discord.com/api/v10"), "/")
	cfg.TargetGuildID = os.Getenv("DISCORD_TARGET_GUILD_ID")
	cfg.BotToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.EmbeddedRoles = getEnvBool("DISCORD_EMBEDDED_ROLES", false)
	cfg.MemberRole = strings.TrimSpace(os.Getenv("DISCORD_MEMBER_ROLE"))
	cfg.RoleQueryTimeout = getEnvDuration("DISCORD_ROLE_QUERY_TIMEOUT", 5*time.Second)
	cfg.AdminUserIDs = ParseList(os.Getenv("DISCORD_ADMIN_USER_IDS"))
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", time.Hour)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.PublicDir = getEnvString("PUBLIC_DIR", "public")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)
	cfg.LogLevel = ParseLogLevel(os.Getenv("LOG_LEVEL"))

	return cfg, nil
}

// SessionMaxAgeSeconds はセッションCookieのMax-Age（秒）を返す。
func (c *Config) SessionMaxAgeSeconds() int {
	return int(c.SessionTTL / time.Second)
}

// LiveRoleQueryEnabled はBotトークンによるロール問い合わせが有効かを返す。
func (c *Config) LiveRoleQueryEnabled() bool {
	return c.BotToken != "" && c.TargetGuildID != ""
}

// ParseList はカンマ区切りの文字列をトリム済みのスライスに変換する。
// 空要素は除外する。
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseRoleMap は "roleID:appRole,roleID2:appRole2" 形式のロール対応表を解析する。
func ParseRoleMap(raw string) (map[string]string, error) {
	m := make(map[string]string)
	for _, entry := range ParseList(raw) {
		id, name, ok := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("malformed entry %q (expected roleID:appRole)", entry)
		}
		m[id] = name
	}
	return m, nil
}

// ParseLogLevel はログレベル文字列をslog.Levelに変換する。
// 不明な値はInfoとして扱う。
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
