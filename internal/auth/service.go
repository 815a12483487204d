// Package auth はDiscord OAuth認証フロー、ロール解決、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

// ExternalIdentity はOAuthプロバイダーから取得したログイン時点のプロフィールを表す。
// 永続化されず、ロール解決とユーザーのUpsertにのみ使われる。
type ExternalIdentity struct {
	ExternalID    string
	Username      string
	Discriminator string
	Avatar        string
	Guilds        []model.GuildMembership
	Provider      string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}

// Resolver はExternalIdentityからEffectiveRolesを決定するインターフェース。
type Resolver interface {
	Resolve(ctx context.Context, identity *ExternalIdentity) []string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration // セッション有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	resolver    Resolver
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	metrics     metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	resolver Resolver,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		oauth:       oauth,
		resolver:    resolver,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		metrics:     mc,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// プロバイダー側の失敗はErrAuthProviderをラップして返し、ユーザーレコードは変更しない。
// ロール解決の失敗はログインを妨げない。
// ユーザーレコードはログインのたびにプロフィールとロールを全置換する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、プロフィールを取得
	identity, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginProviderError)
		return nil, fmt.Errorf("failed to exchange oauth code: %w", wrapProviderError(err))
	}
	if identity == nil || identity.ExternalID == "" {
		s.metrics.RecordLogin(metrics.LoginProviderError)
		return nil, fmt.Errorf("%w: empty external identity", ErrAuthProvider)
	}

	// 2. EffectiveRolesを解決（失敗時は空集合）
	roles := s.resolver.Resolve(ctx, identity)

	// 3. ユーザーを作成または全置換
	user := &model.User{
		ExternalID:     identity.ExternalID,
		Username:       identity.Username,
		Discriminator:  identity.Discriminator,
		Avatar:         identity.Avatar,
		Guilds:         identity.Guilds,
		EffectiveRoles: roles,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		s.metrics.RecordLogin(metrics.LoginStoreError)
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, user.ExternalID)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginStoreError)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	slog.Info("user logged in",
		slog.String("user_id", user.ExternalID),
		slog.String("provider", identity.Provider),
		slog.Int("roles_count", len(user.EffectiveRoles)),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無い・期限切れ・ユーザーが存在しない・取得に失敗した場合は
// いずれもErrUnauthenticatedをラップしたエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session ID is required", ErrUnauthenticated)
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find session: %w", ErrUnauthenticated, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session not found or expired", ErrUnauthenticated)
	}

	user, err := s.userRepo.FindByExternalID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find user: %w", ErrUnauthenticated, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthenticated)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(s.config.SessionTTL),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// wrapProviderError はプロバイダーのエラーがErrAuthProviderを含まない場合にラップする。
func wrapProviderError(err error) error {
	if errors.Is(err, ErrAuthProvider) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAuthProvider, err)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
