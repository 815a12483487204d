package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

const minVehicleYear = 1900

// VehicleInput は車両登録リクエストの内容。
type VehicleInput struct {
	Plate    string `json:"patente"`
	Brand    string `json:"marca"`
	Model    string `json:"modelo"`
	Type     string `json:"tipo_vehiculo"`
	Year     int    `json:"anio"`
	Color    string `json:"color"`
	OwnerRUT string `json:"propietarioRut"`
	ImageURL string `json:"imagen_url"`
}

// VehiclePatch は車両更新リクエストの内容。nilの項目は変更しない。
type VehiclePatch struct {
	Plate    *string `json:"patente"`
	Brand    *string `json:"marca"`
	Model    *string `json:"modelo"`
	Type     *string `json:"tipo_vehiculo"`
	Year     *int    `json:"anio"`
	Color    *string `json:"color"`
	OwnerRUT *string `json:"propietarioRut"`
	ImageURL *string `json:"imagen_url"`
}

// VehicleService は車両登録のサービス層。
type VehicleService struct {
	vehicles  repository.VehicleRepository
	personas  repository.PersonaRepository
	sanitizer TextSanitizer
	urls      URLValidator
	now       clock
}

// NewVehicleService はVehicleServiceの新しいインスタンスを生成する。
func NewVehicleService(
	vehicles repository.VehicleRepository,
	personas repository.PersonaRepository,
	sanitizer TextSanitizer,
	urls URLValidator,
) *VehicleService {
	return &VehicleService{
		vehicles:  vehicles,
		personas:  personas,
		sanitizer: sanitizer,
		urls:      urls,
		now:       time.Now,
	}
}

// List は全車両を所有者付きで返す。
func (s *VehicleService) List(ctx context.Context) ([]*model.Vehicle, error) {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("車両一覧の取得に失敗しました: %w", err)
	}
	return vehicles, nil
}

// Search はパテンテまたは所有者の氏名・RUTで車両を検索する。
// クエリは必須で、該当なしの場合はエラーを返す。
func (s *VehicleService) Search(ctx context.Context, query string) ([]*model.Vehicle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewMissingQueryError()
	}

	vehicles, err := s.vehicles.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("車両の検索に失敗しました: %w", err)
	}
	if len(vehicles) == 0 {
		return nil, model.NewNoVehicleMatchError()
	}
	return vehicles, nil
}

// Get は指定IDの車両を返す。
func (s *VehicleService) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	if err := validateID("vehículo", id); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// Create は車両を登録する。所有者はRUTで参照し、事前に登録されている必要がある。
func (s *VehicleService) Create(ctx context.Context, in VehicleInput) (*model.Vehicle, error) {
	plate := normalizePlate(in.Plate)
	brand := s.sanitizer.Clean(in.Brand)
	vehicleModel := s.sanitizer.Clean(in.Model)
	color := s.sanitizer.Clean(in.Color)

	if plate == "" || brand == "" || vehicleModel == "" || in.Year == 0 || color == "" || strings.TrimSpace(in.OwnerRUT) == "" {
		return nil, model.NewValidationError(
			"Todos los campos obligatorios (patente, marca, modelo, año, color, RUT del propietario) son requeridos.")
	}
	if err := s.validateYear(in.Year); err != nil {
		return nil, err
	}

	imageURL, err := s.imageURL(in.ImageURL)
	if err != nil {
		return nil, err
	}

	owner, err := s.ownerByRUT(ctx, in.OwnerRUT)
	if err != nil {
		return nil, err
	}

	existing, err := s.vehicles.FindByPlate(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("パテンテの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicatePlateError()
	}

	now := s.now()
	ownerID := owner.ID
	v := &model.Vehicle{
		ID:           uuid.NewString(),
		Plate:        plate,
		Brand:        brand,
		Model:        vehicleModel,
		Type:         s.sanitizer.Clean(in.Type),
		Color:        color,
		Year:         in.Year,
		ImageURL:     imageURL,
		OwnerID:      &ownerID,
		Owner:        owner,
		RegisteredAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.vehicles.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicatePlateError()
		}
		return nil, fmt.Errorf("車両の登録に失敗しました: %w", err)
	}

	slog.Info("vehicle created",
		slog.String("vehicle_id", v.ID),
		slog.String("patente", v.Plate),
	)
	return v, nil
}

// Update は車両の指定項目を更新する。
func (s *VehicleService) Update(ctx context.Context, id string, patch VehiclePatch) (*model.Vehicle, error) {
	if err := validateID("vehículo", id); err != nil {
		return nil, err
	}
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Plate != nil {
		plate := normalizePlate(*patch.Plate)
		if plate == "" {
			return nil, model.NewValidationError("La patente no puede estar vacía.")
		}
		if plate != v.Plate {
			existing, err := s.vehicles.FindByPlate(ctx, plate)
			if err != nil {
				return nil, fmt.Errorf("パテンテの重複確認に失敗しました: %w", err)
			}
			if existing != nil && existing.ID != v.ID {
				return nil, model.NewDuplicatePlateError()
			}
		}
		v.Plate = plate
	}
	if patch.Brand != nil {
		if v.Brand = s.sanitizer.Clean(*patch.Brand); v.Brand == "" {
			return nil, model.NewValidationError("La marca no puede estar vacía.")
		}
	}
	if patch.Model != nil {
		if v.Model = s.sanitizer.Clean(*patch.Model); v.Model == "" {
			return nil, model.NewValidationError("El modelo no puede estar vacío.")
		}
	}
	if patch.Type != nil {
		v.Type = s.sanitizer.Clean(*patch.Type)
	}
	if patch.Color != nil {
		if v.Color = s.sanitizer.Clean(*patch.Color); v.Color == "" {
			return nil, model.NewValidationError("El color no puede estar vacío.")
		}
	}
	if patch.Year != nil {
		if err := s.validateYear(*patch.Year); err != nil {
			return nil, err
		}
		v.Year = *patch.Year
	}
	if patch.ImageURL != nil {
		imageURL, err := s.imageURL(*patch.ImageURL)
		if err != nil {
			return nil, err
		}
		v.ImageURL = imageURL
	}
	if patch.OwnerRUT != nil {
		owner, err := s.ownerByRUT(ctx, *patch.OwnerRUT)
		if err != nil {
			return nil, err
		}
		ownerID := owner.ID
		v.OwnerID = &ownerID
		v.Owner = owner
	}

	return s.save(ctx, v)
}

// ToggleWanted は車両の手配状態（buscado）を反転する。
func (s *VehicleService) ToggleWanted(ctx context.Context, id string) (*model.Vehicle, error) {
	if err := validateID("vehículo", id); err != nil {
		return nil, err
	}
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Wanted = !v.Wanted
	return s.save(ctx, v)
}

// Delete は車両を削除する。罰金も合わせて削除される。
func (s *VehicleService) Delete(ctx context.Context, id string) error {
	if err := validateID("vehículo", id); err != nil {
		return err
	}
	deleted, err := s.vehicles.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("車両の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewVehicleNotFoundError()
	}

	slog.Info("vehicle deleted", slog.String("vehicle_id", id))
	return nil
}

func (s *VehicleService) find(ctx context.Context, id string) (*model.Vehicle, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if v == nil {
		return nil, model.NewVehicleNotFoundError()
	}
	return v, nil
}

func (s *VehicleService) save(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	v.UpdatedAt = s.now()
	if err := s.vehicles.Update(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicatePlateError()
		}
		return nil, fmt.Errorf("車両の更新に失敗しました: %w", err)
	}
	return v, nil
}

func (s *VehicleService) ownerByRUT(ctx context.Context, raw string) (*model.Persona, error) {
	rut, err := NormalizeRUT(raw)
	if err != nil {
		return nil, model.NewValidationError("El RUT del propietario no es válido.")
	}
	owner, err := s.personas.FindByRUT(ctx, rut)
	if err != nil {
		return nil, fmt.Errorf("所有者の取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewOwnerNotFoundError()
	}
	return owner, nil
}

func (s *VehicleService) validateYear(year int) error {
	maxYear := s.now().Year() + 1
	if year < minVehicleYear || year > maxYear {
		return model.NewValidationError(fmt.Sprintf("El año debe estar entre %d y %d.", minVehicleYear, maxYear))
	}
	return nil
}

// imageURL は画像URLを検証する。空の場合は既定の画像を返す。
func (s *VehicleService) imageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DefaultVehicleImageURL, nil
	}
	if err := s.urls.ValidateURL(raw); err != nil {
		slog.Warn("rejected vehicle image URL", slog.String("error", err.Error()))
		return "", model.NewValidationError("La URL de la imagen no es válida.")
	}
	return raw, nil
}
