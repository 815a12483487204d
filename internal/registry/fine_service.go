package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

// FineInput は罰金登録リクエストの内容。車両はパテンテで指定する。
type FineInput struct {
	Plate       string `json:"patente"`
	Reason      string `json:"motivo"`
	Amount      *int64 `json:"monto"`
	Place       string `json:"lugar"`
	Description string `json:"descripcion"`
}

// FinePatch は罰金更新リクエストの内容。nilの項目は変更しない。
type FinePatch struct {
	Reason      *string    `json:"motivo"`
	Amount      *int64     `json:"monto"`
	Place       *string    `json:"lugar"`
	Description *string    `json:"descripcion"`
	IssuedAt    *time.Time `json:"fecha"`
	Paid        *bool      `json:"pagada"`
}

// FineService は罰金登録のサービス層。
type FineService struct {
	fines     repository.FineRepository
	vehicles  repository.VehicleRepository
	sanitizer TextSanitizer
	now       clock
}

// NewFineService はFineServiceの新しいインスタンスを生成する。
func NewFineService(
	fines repository.FineRepository,
	vehicles repository.VehicleRepository,
	sanitizer TextSanitizer,
) *FineService {
	return &FineService{
		fines:     fines,
		vehicles:  vehicles,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Add はパテンテで指定された車両に罰金を追加する。
func (s *FineService) Add(ctx context.Context, in FineInput) (*model.Fine, error) {
	plate := normalizePlate(in.Plate)
	reason := s.sanitizer.Clean(in.Reason)
	place := s.sanitizer.Clean(in.Place)

	if plate == "" || reason == "" || in.Amount == nil || place == "" {
		return nil, model.NewValidationError("Patente, motivo, monto y lugar son campos requeridos para la multa.")
	}
	if err := validateAmount(*in.Amount); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.FindByPlate(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if vehicle == nil {
		return nil, model.NewVehicleNotFoundError()
	}

	f := &model.Fine{
		ID:          uuid.NewString(),
		VehicleID:   vehicle.ID,
		Reason:      reason,
		Place:       place,
		Description: s.sanitizer.Clean(in.Description),
		Amount:      *in.Amount,
		IssuedAt:    s.now(),
	}
	if err := s.fines.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("罰金の登録に失敗しました: %w", err)
	}

	slog.Info("fine added",
		slog.String("fine_id", f.ID),
		slog.String("vehicle_id", f.VehicleID),
	)
	return f, nil
}

// ListByVehicle は車両の罰金一覧を返す。
func (s *FineService) ListByVehicle(ctx context.Context, vehicleID string) ([]*model.Fine, error) {
	if err := s.requireVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	fines, err := s.fines.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("罰金一覧の取得に失敗しました: %w", err)
	}
	return fines, nil
}

// Update は罰金の指定項目を更新する。
func (s *FineService) Update(ctx context.Context, vehicleID, fineID string, patch FinePatch) (*model.Fine, error) {
	f, err := s.find(ctx, vehicleID, fineID)
	if err != nil {
		return nil, err
	}

	if patch.Reason != nil {
		if f.Reason = s.sanitizer.Clean(*patch.Reason); f.Reason == "" {
			return nil, model.NewValidationError("El motivo no puede estar vacío.")
		}
	}
	if patch.Place != nil {
		if f.Place = s.sanitizer.Clean(*patch.Place); f.Place == "" {
			return nil, model.NewValidationError("El lugar no puede estar vacío.")
		}
	}
	if patch.Description != nil {
		f.Description = s.sanitizer.Clean(*patch.Description)
	}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
		f.Amount = *patch.Amount
	}
	if patch.IssuedAt != nil {
		if patch.IssuedAt.IsZero() {
			return nil, model.NewValidationError("La fecha de la multa no es válida.")
		}
		f.IssuedAt = *patch.IssuedAt
	}
	if patch.Paid != nil {
		f.Paid = *patch.Paid
	}

	return s.save(ctx, f)
}

// MarkPaid は罰金を支払済みにする。
func (s *FineService) MarkPaid(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
	f, err := s.find(ctx, vehicleID, fineID)
	if err != nil {
		return nil, err
	}
	f.Paid = true
	return s.save(ctx, f)
}

// Delete は罰金を削除する。
func (s *FineService) Delete(ctx context.Context, vehicleID, fineID string) error {
	if err := s.requireVehicle(ctx, vehicleID); err != nil {
		return err
	}
	if err := validateID("multa", fineID); err != nil {
		return err
	}

	deleted, err := s.fines.Delete(ctx, vehicleID, fineID)
	if err != nil {
		return fmt.Errorf("罰金の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewFineNotFoundError()
	}

	slog.Info("fine deleted",
		slog.String("fine_id", fineID),
		slog.String("vehicle_id", vehicleID),
	)
	return nil
}

func (s *FineService) requireVehicle(ctx context.Context, vehicleID string) error {
	if err := validateID("vehículo", vehicleID); err != nil {
		return err
	}
	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if v == nil {
		return model.NewVehicleNotFoundError()
	}
	return nil
}

func (s *FineService) find(ctx context.Context, vehicleID, fineID string) (*model.Fine, error) {
	if err := s.requireVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	if err := validateID("multa", fineID); err != nil {
		return nil, err
	}
	f, err := s.fines.FindByID(ctx, vehicleID, fineID)
	if err != nil {
		return nil, fmt.Errorf("罰金の取得に失敗しました: %w", err)
	}
	if f == nil {
		return nil, model.NewFineNotFoundError()
	}
	return f, nil
}

func (s *FineService) save(ctx context.Context, f *model.Fine) (*model.Fine, error) {
	if err := s.fines.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("罰金の更新に失敗しました: %w", err)
	}
	return f, nil
}

func validateAmount(amount int64) error {
	if amount < 0 {
		return model.NewValidationError("El monto de la multa debe ser un número positivo.")
	}
	return nil
}
