package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByExternalID は外部IDでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	user := &model.User{}
	var discriminator, avatar sql.NullString
	var guildsJSON []byte
	var roles pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT external_id, username, discriminator, avatar, guilds, effective_roles,
		        created_at, updated_at
		 FROM users WHERE external_id = $1`,
		externalID,
	).Scan(
		&user.ExternalID, &user.Username, &discriminator, &avatar, &guildsJSON, &roles,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by external ID: %w", err)
	}

	user.Discriminator = nullStringValue(discriminator)
	user.Avatar = nullStringValue(avatar)
	user.EffectiveRoles = model.NormalizeRoles(roles)
	if len(guildsJSON) > 0 {
		if err := json.Unmarshal(guildsJSON, &user.Guilds); err != nil {
			return nil, fmt.Errorf("failed to decode user guilds: %w", err)
		}
	}

	return user, nil
}

// Upsert は外部IDをキーにユーザーを作成または全置換する。
// created_atは初回作成時の値を維持し、それ以外の列はすべて上書きする。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) error {
	guilds := user.Guilds
	if guilds == nil {
		guilds = []model.GuildMembership{}
	}
	guildsJSON, err := json.Marshal(guilds)
	if err != nil {
		return fmt.Errorf("failed to encode user guilds: %w", err)
	}
	roles := model.NormalizeRoles(user.EffectiveRoles)

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO users (external_id, username, discriminator, avatar, guilds, effective_roles,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (external_id) DO UPDATE SET
		     username = EXCLUDED.username,
		     discriminator = EXCLUDED.discriminator,
		     avatar = EXCLUDED.avatar,
		     guilds = EXCLUDED.guilds,
		     effective_roles = EXCLUDED.effective_roles,
		     updated_at = now()
		 RETURNING created_at, updated_at`,
		user.ExternalID, user.Username, nullString(user.Discriminator), nullString(user.Avatar),
		guildsJSON, pq.Array(roles),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	user.EffectiveRoles = roles
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
