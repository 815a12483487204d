package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PostgresPersonaRepo はPostgreSQLを使用した人物リポジトリ。
type PostgresPersonaRepo struct {
	db *sql.DB
}

// NewPostgresPersonaRepo はPostgresPersonaRepoを生成する。
func NewPostgresPersonaRepo(db *sql.DB) *PostgresPersonaRepo {
	return &PostgresPersonaRepo{db: db}
}

const personaColumns = `id, nombre_completo, rut, direccion, telefono, email, edad,
	buscado, motivo_busqueda, descripcion_fisica, lugar_busqueda, created_at, updated_at`

func scanPersona(s rowScanner) (*model.Persona, error) {
	p := &model.Persona{}
	var age sql.NullInt64
	var reason, description, location sql.NullString

	if err := s.Scan(
		&p.ID, &p.FullName, &p.RUT, &p.Address, &p.Phone, &p.Email, &age,
		&p.Wanted, &reason, &description, &location, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Age = nullIntValue(age)
	p.WantedReason = nullStringValue(reason)
	p.PhysicalDescription = nullStringValue(description)
	p.WantedLocation = nullStringValue(location)
	return p, nil
}

func (r *PostgresPersonaRepo) queryList(ctx context.Context, query string, args ...any) ([]*model.Persona, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	personas := []*model.Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// List は全人物を作成日時の降順で返す。
func (r *PostgresPersonaRepo) List(ctx context.Context) ([]*model.Persona, error) {
	personas, err := r.queryList(ctx,
		`SELECT `+personaColumns+` FROM personas ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("人物一覧の取得に失敗しました: %w", err)
	}
	return personas, nil
}

// Search は氏名・RUT・手配理由・手配場所の部分一致で検索する。
func (r *PostgresPersonaRepo) Search(ctx context.Context, query string) ([]*model.Persona, error) {
	personas, err := r.queryList(ctx,
		`SELECT `+personaColumns+` FROM personas
		 WHERE nombre_completo ILIKE $1
		    OR rut ILIKE $1
		    OR motivo_busqueda ILIKE $1
		    OR lugar_busqueda ILIKE $1
		 ORDER BY created_at DESC`,
		likePattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("人物の検索に失敗しました: %w", err)
	}
	return personas, nil
}

// ListWanted は手配中の人物を最新更新順に最大limit件返す。
func (r *PostgresPersonaRepo) ListWanted(ctx context.Context, limit int) ([]*model.Persona, error) {
	personas, err := r.queryList(ctx,
		`SELECT `+personaColumns+` FROM personas
		 WHERE buscado = true
		 ORDER BY updated_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("手配中人物の取得に失敗しました: %w", err)
	}
	return personas, nil
}

// FindByID は指定IDの人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonaRepo) FindByID(ctx context.Context, id string) (*model.Persona, error) {
	p, err := scanPersona(r.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("人物の取得に失敗しました: %w", err)
	}
	return p, nil
}

// FindByRUT は正規化済みRUTで人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonaRepo) FindByRUT(ctx context.Context, rut string) (*model.Persona, error) {
	p, err := scanPersona(r.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE rut = $1`, rut))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("RUTによる人物の取得に失敗しました: %w", err)
	}
	return p, nil
}

// Create は人物を作成する。
func (r *PostgresPersonaRepo) Create(ctx context.Context, p *model.Persona) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO personas (id, nombre_completo, rut, direccion, telefono, email, edad,
		                       buscado, motivo_busqueda, descripcion_fisica, lugar_busqueda,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.FullName, p.RUT, p.Address, p.Phone, p.Email, nullInt(p.Age),
		p.Wanted, nullString(p.WantedReason), nullString(p.PhysicalDescription), nullString(p.WantedLocation),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("人物の作成に失敗しました: %w", mapUniqueViolation(err))
	}
	return nil
}

// Update は人物の全項目を更新する。
func (r *PostgresPersonaRepo) Update(ctx context.Context, p *model.Persona) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE personas SET
		     nombre_completo = $2, rut = $3, direccion = $4, telefono = $5, email = $6, edad = $7,
		     buscado = $8, motivo_busqueda = $9, descripcion_fisica = $10, lugar_busqueda = $11,
		     updated_at = $12
		 WHERE id = $1`,
		p.ID, p.FullName, p.RUT, p.Address, p.Phone, p.Email, nullInt(p.Age),
		p.Wanted, nullString(p.WantedReason), nullString(p.PhysicalDescription), nullString(p.WantedLocation),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("人物の更新に失敗しました: %w", mapUniqueViolation(err))
	}
	return nil
}

// Delete は指定IDの人物を削除する。
func (r *PostgresPersonaRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("人物の削除に失敗しました: %w", err)
	}
	deleted, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ PersonaRepository = (*PostgresPersonaRepo)(nil)
