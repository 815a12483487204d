package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PostgresVehicleRepo はPostgreSQLを使用した車両リポジトリ。
type PostgresVehicleRepo struct {
	db *sql.DB
}

// NewPostgresVehicleRepo はPostgresVehicleRepoを生成する。
func NewPostgresVehicleRepo(db *sql.DB) *PostgresVehicleRepo {
	return &PostgresVehicleRepo{db: db}
}

// vehicleSelect は所有者をLEFT JOINした車両取得クエリの共通部分。
const vehicleSelect = `SELECT v.id, v.patente, v.marca, v.modelo, v.tipo_vehiculo, v.color, v.anio,
	v.imagen_url, v.propietario_id, v.buscado, v.fecha_registro, v.created_at, v.updated_at,
	p.nombre_completo, p.rut, p.edad
	FROM vehiculos v
	LEFT JOIN personas p ON p.id = v.propietario_id`

func scanVehicle(s rowScanner) (*model.Vehicle, error) {
	v := &model.Vehicle{}
	var vehicleType, color, imageURL, ownerID sql.NullString
	var ownerName, ownerRUT sql.NullString
	var ownerAge sql.NullInt64

	if err := s.Scan(
		&v.ID, &v.Plate, &v.Brand, &v.Model, &vehicleType, &color, &v.Year,
		&imageURL, &ownerID, &v.Wanted, &v.RegisteredAt, &v.CreatedAt, &v.UpdatedAt,
		&ownerName, &ownerRUT, &ownerAge,
	); err != nil {
		return nil, err
	}

	v.Type = nullStringValue(vehicleType)
	v.Color = nullStringValue(color)
	v.ImageURL = nullStringValue(imageURL)
	if ownerID.Valid {
		id := ownerID.String
		v.OwnerID = &id
		v.Owner = &model.Persona{
			ID:       id,
			FullName: nullStringValue(ownerName),
			RUT:      nullStringValue(ownerRUT),
			Age:      nullIntValue(ownerAge),
		}
	}
	return v, nil
}

func (r *PostgresVehicleRepo) queryList(ctx context.Context, query string, args ...any) ([]*model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := []*model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *PostgresVehicleRepo) queryOne(ctx context.Context, query string, args ...any) (*model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// List は全車両を登録日時の降順で返す。
func (r *PostgresVehicleRepo) List(ctx context.Context) ([]*model.Vehicle, error) {
	vehicles, err := r.queryList(ctx, vehicleSelect+` ORDER BY v.fecha_registro DESC`)
	if err != nil {
		return nil, fmt.Errorf("車両一覧の取得に失敗しました: %w", err)
	}
	return vehicles, nil
}

// Search はパテンテまたは所有者の氏名・RUTの部分一致で検索する。
// 1台の車両は複数条件に一致しても1回だけ返す。
func (r *PostgresVehicleRepo) Search(ctx context.Context, query string) ([]*model.Vehicle, error) {
	vehicles, err := r.queryList(ctx,
		vehicleSelect+`
		 WHERE v.patente ILIKE $1
		    OR p.nombre_completo ILIKE $1
		    OR p.rut ILIKE $1
		 ORDER BY v.fecha_registro DESC`,
		likePattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("車両の検索に失敗しました: %w", err)
	}
	return vehicles, nil
}

// ListRecent は直近に登録された車両を最大limit件返す。
func (r *PostgresVehicleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Vehicle, error) {
	vehicles, err := r.queryList(ctx, vehicleSelect+` ORDER BY v.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("最近の車両の取得に失敗しました: %w", err)
	}
	return vehicles, nil
}

// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
func (r *PostgresVehicleRepo) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	v, err := r.queryOne(ctx, vehicleSelect+` WHERE v.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	return v, nil
}

// FindByPlate はパテンテで車両を取得する。見つからない場合はnilを返す。
func (r *PostgresVehicleRepo) FindByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	v, err := r.queryOne(ctx, vehicleSelect+` WHERE v.patente = $1`, plate)
	if err != nil {
		return nil, fmt.Errorf("パテンテによる車両の取得に失敗しました: %w", err)
	}
	return v, nil
}

// CountByOwner は指定人物が所有する車両数を返す。
func (r *PostgresVehicleRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehiculos WHERE propietario_id = $1`, ownerID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("所有車両数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// Create は車両を作成する。
func (r *PostgresVehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehiculos (id, patente, marca, modelo, tipo_vehiculo, color, anio, imagen_url,
		                        propietario_id, buscado, fecha_registro, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.Plate, v.Brand, v.Model, nullString(v.Type), nullString(v.Color), v.Year, nullString(v.ImageURL),
		v.OwnerID, v.Wanted, v.RegisteredAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("車両の作成に失敗しました: %w", mapUniqueViolation(err))
	}
	return nil
}

// Update は車両の全項目を更新する。
func (r *PostgresVehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE vehiculos SET
		     patente = $2, marca = $3, modelo = $4, tipo_vehiculo = $5, color = $6, anio = $7,
		     imagen_url = $8, propietario_id = $9, buscado = $10, updated_at = $11
		 WHERE id = $1`,
		v.ID, v.Plate, v.Brand, v.Model, nullString(v.Type), nullString(v.Color), v.Year,
		nullString(v.ImageURL), v.OwnerID, v.Wanted, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("車両の更新に失敗しました: %w", mapUniqueViolation(err))
	}
	return nil
}

// Delete は指定IDの車両を削除する。関連する罰金はCASCADE削除される。
func (r *PostgresVehicleRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehiculos WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("車両の削除に失敗しました: %w", err)
	}
	deleted, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ VehicleRepository = (*PostgresVehicleRepo)(nil)
