package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PostgresFineRepo はPostgreSQLを使用した罰金リポジトリ。
type PostgresFineRepo struct {
	db *sql.DB
}

// NewPostgresFineRepo はPostgresFineRepoを生成する。
func NewPostgresFineRepo(db *sql.DB) *PostgresFineRepo {
	return &PostgresFineRepo{db: db}
}

const fineColumns = `id, vehiculo_id, motivo, lugar, descripcion, monto, pagada, fecha`

func scanFine(s rowScanner) (*model.Fine, error) {
	f := &model.Fine{}
	var description sql.NullString
	if err := s.Scan(
		&f.ID, &f.VehicleID, &f.Reason, &f.Place, &description, &f.Amount, &f.Paid, &f.IssuedAt,
	); err != nil {
		return nil, err
	}
	f.Description = nullStringValue(description)
	return f, nil
}

// Create は罰金を作成する。
func (r *PostgresFineRepo) Create(ctx context.Context, f *model.Fine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO multas (`+fineColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.VehicleID, f.Reason, f.Place, nullString(f.Description), f.Amount, f.Paid, f.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("罰金の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByVehicle は車両の罰金を発行日時の降順で返す。
func (r *PostgresFineRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fineColumns+` FROM multas WHERE vehiculo_id = $1 ORDER BY fecha DESC`,
		vehicleID,
	)
	if err != nil {
		return nil, fmt.Errorf("罰金一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	fines := []*model.Fine{}
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, fmt.Errorf("罰金の読み取りに失敗しました: %w", err)
		}
		fines = append(fines, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("罰金一覧の取得に失敗しました: %w", err)
	}
	return fines, nil
}

// FindByID は車両IDと罰金IDで罰金を取得する。見つからない場合はnilを返す。
func (r *PostgresFineRepo) FindByID(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
	f, err := scanFine(r.db.QueryRowContext(ctx,
		`SELECT `+fineColumns+` FROM multas WHERE vehiculo_id = $1 AND id = $2`,
		vehicleID, fineID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("罰金の取得に失敗しました: %w", err)
	}
	return f, nil
}

// Update は罰金の全項目を更新する。
func (r *PostgresFineRepo) Update(ctx context.Context, f *model.Fine) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE multas SET motivo = $3, lugar = $4, descripcion = $5, monto = $6, pagada = $7, fecha = $8
		 WHERE vehiculo_id = $1 AND id = $2`,
		f.VehicleID, f.ID, f.Reason, f.Place, nullString(f.Description), f.Amount, f.Paid, f.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("罰金の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は罰金を削除する。
func (r *PostgresFineRepo) Delete(ctx context.Context, vehicleID, fineID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM multas WHERE vehiculo_id = $1 AND id = $2`, vehicleID, fineID)
	if err != nil {
		return false, fmt.Errorf("罰金の削除に失敗しました: %w", err)
	}
	deleted, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// ListRecent は直近の罰金をパテンテ・所有者付きで最大limit件返す。
func (r *PostgresFineRepo) ListRecent(ctx context.Context, limit int) ([]*model.RecentFine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.patente, p.nombre_completo, p.rut, p.edad,
		        m.motivo, m.monto, m.fecha, m.lugar, m.descripcion, m.pagada
		 FROM multas m
		 JOIN vehiculos v ON v.id = m.vehiculo_id
		 LEFT JOIN personas p ON p.id = v.propietario_id
		 ORDER BY m.fecha DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("最近の罰金の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	fines := []*model.RecentFine{}
	for rows.Next() {
		f := &model.RecentFine{}
		var ownerName, ownerRUT, description sql.NullString
		var ownerAge sql.NullInt64
		if err := rows.Scan(
			&f.Plate, &ownerName, &ownerRUT, &ownerAge,
			&f.Reason, &f.Amount, &f.IssuedAt, &f.Place, &description, &f.Paid,
		); err != nil {
			return nil, fmt.Errorf("罰金の読み取りに失敗しました: %w", err)
		}
		f.Description = nullStringValue(description)
		if ownerName.Valid || ownerRUT.Valid {
			f.Owner = &model.FineOwner{
				FullName: nullStringValue(ownerName),
				RUT:      nullStringValue(ownerRUT),
				Age:      nullIntValue(ownerAge),
			}
		}
		fines = append(fines, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("最近の罰金の取得に失敗しました: %w", err)
	}
	return fines, nil
}

// compile-time interface check
var _ FineRepository = (*PostgresFineRepo)(nil)
