package registry

import (
	"context"
	"fmt"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

// PublicService はログイン不要の公開一覧を提供する。
type PublicService struct {
	vehicles repository.VehicleRepository
	personas repository.PersonaRepository
	fines    repository.FineRepository
}

// NewPublicService はPublicServiceの新しいインスタンスを生成する。
func NewPublicService(
	vehicles repository.VehicleRepository,
	personas repository.PersonaRepository,
	fines repository.FineRepository,
) *PublicService {
	return &PublicService{vehicles: vehicles, personas: personas, fines: fines}
}

// RecentVehicles は直近に登録された車両を返す。
func (s *PublicService) RecentVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	vehicles, err := s.vehicles.ListRecent(ctx, PublicListLimit)
	if err != nil {
		return nil, fmt.Errorf("最新車両の取得に失敗しました: %w", err)
	}
	return vehicles, nil
}

// WantedPeople は手配中の人物を返す。
func (s *PublicService) WantedPeople(ctx context.Context) ([]*model.Persona, error) {
	personas, err := s.personas.ListWanted(ctx, PublicListLimit)
	if err != nil {
		return nil, fmt.Errorf("手配中人物の取得に失敗しました: %w", err)
	}
	return personas, nil
}

// RecentFines は直近の罰金をパテンテと所有者付きで返す。
func (s *PublicService) RecentFines(ctx context.Context) ([]*model.RecentFine, error) {
	fines, err := s.fines.ListRecent(ctx, PublicListLimit)
	if err != nil {
		return nil, fmt.Errorf("最新罰金の取得に失敗しました: %w", err)
	}
	return fines, nil
}
