package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// セッションの有効判定。expires_atちょうどの時刻で失効し、同じ瞬間から削除対象になる。
const (
	sessionValidClause   = `expires_at > now()`
	sessionExpiredClause = `expires_at <= now()`
)

// PostgresSessionRepo はsessionsテーブルをログインセッションの保存先とする。
// 有効期限はFindByIDでの比較で強制し、行の削除はワーカーのDeleteExpiredに任せる。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はログイン時に発行したセッションを保存する。user_idはusersを参照する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID はCookieのセッションIDからセッションを復元する。
// 行が無い場合と期限切れの場合はどちらもnil, nilを返し、呼び出し側は未認証として扱う。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1 AND `+sessionValidClause,
		id,
	)
	switch err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &s, nil
}

// DeleteByID はログアウト時にセッションを破棄する。存在しないIDでもエラーにしない。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired はFindByIDが既に無効とみなす行を一括削除し、件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE `+sessionExpiredClause)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}
	return purged, nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
