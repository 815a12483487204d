// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はログインユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByExternalID は外部ID（DiscordユーザーID）でユーザーを取得する。見つからない場合はnilを返す。
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)

	// Upsert は外部IDをキーにユーザーを作成または全置換する。
	// プロフィール・ギルド・EffectiveRolesは既存値とマージせず上書きする。
	// 成功時はuserのCreatedAt/UpdatedAtを更新する。
	Upsert(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PersonaRepository は人物レコードの永続化インターフェース。
type PersonaRepository interface {
	// List は全人物を作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Persona, error)
	// Search は氏名・RUT・手配理由・手配場所の部分一致（大文字小文字無視）で検索する。
	Search(ctx context.Context, query string) ([]*model.Persona, error)
	// ListWanted は手配中（buscado）の人物を最大limit件返す。
	ListWanted(ctx context.Context, limit int) ([]*model.Persona, error)
	// FindByID は指定IDの人物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Persona, error)
	// FindByRUT は正規化済みRUTで人物を取得する。見つからない場合はnilを返す。
	FindByRUT(ctx context.Context, rut string) (*model.Persona, error)
	// Create は人物を作成する。RUT重複時はErrDuplicateを返す。
	Create(ctx context.Context, persona *model.Persona) error
	// Update は人物を更新する。RUT重複時はErrDuplicateを返す。
	Update(ctx context.Context, persona *model.Persona) error
	// Delete は指定IDの人物を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// VehicleRepository は車両レコードの永続化インターフェース。
// 取得系メソッドは所有者（Owner）を結合して返す。
type VehicleRepository interface {
	// List は全車両を登録日時の降順で返す。
	List(ctx context.Context) ([]*model.Vehicle, error)
	// Search はパテンテまたは所有者の氏名・RUTの部分一致で検索する。
	Search(ctx context.Context, query string) ([]*model.Vehicle, error)
	// ListRecent は直近に登録された車両を最大limit件返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Vehicle, error)
	// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
	// FindByPlate は大文字化済みパテンテで車両を取得する。見つからない場合はnilを返す。
	FindByPlate(ctx context.Context, plate string) (*model.Vehicle, error)
	// CountByOwner は指定人物が所有する車両数を返す。
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	// Create は車両を作成する。パテンテ重複時はErrDuplicateを返す。
	Create(ctx context.Context, vehicle *model.Vehicle) error
	// Update は車両を更新する。パテンテ重複時はErrDuplicateを返す。
	Update(ctx context.Context, vehicle *model.Vehicle) error
	// Delete は指定IDの車両を削除する。関連する罰金はCASCADE削除される。
	Delete(ctx context.Context, id string) (bool, error)
}

// FineRepository は罰金レコードの永続化インターフェース。
type FineRepository interface {
	// Create は罰金を作成する。
	Create(ctx context.Context, fine *model.Fine) error
	// ListByVehicle は車両の罰金を発行日時の降順で返す。
	ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error)
	// FindByID は車両IDと罰金IDで罰金を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, vehicleID, fineID string) (*model.Fine, error)
	// Update は罰金を更新する。
	Update(ctx context.Context, fine *model.Fine) error
	// Delete は罰金を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, vehicleID, fineID string) (bool, error)
	// ListRecent は直近の罰金をパテンテ・所有者付きで最大limit件返す。
	ListRecent(ctx context.Context, limit int) ([]*model.RecentFine, error)
}
