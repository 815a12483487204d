package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
)

const maxAge = 130

// PersonaInput は人物登録リクエストの内容。
type PersonaInput struct {
	FullName string `json:"nombreCompleto"`
	RUT      string `json:"rut"`
	Address  string `json:"direccion"`
	Phone    string `json:"telefono"`
	Email    string `json:"email"`
	Age      *int   `json:"edad"`
}

// PersonaPatch は人物更新リクエストの内容。nilの項目は変更しない。
type PersonaPatch struct {
	FullName *string `json:"nombreCompleto"`
	RUT      *string `json:"rut"`
	Address  *string `json:"direccion"`
	Phone    *string `json:"telefono"`
	Email    *string `json:"email"`
	Age      *int    `json:"edad"`
}

// PersonaService は人物登録のサービス層。
type PersonaService struct {
	personas  repository.PersonaRepository
	vehicles  repository.VehicleRepository
	sanitizer TextSanitizer
	now       clock
}

// NewPersonaService はPersonaServiceの新しいインスタンスを生成する。
func NewPersonaService(
	personas repository.PersonaRepository,
	vehicles repository.VehicleRepository,
	sanitizer TextSanitizer,
) *PersonaService {
	return &PersonaService{
		personas:  personas,
		vehicles:  vehicles,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は全人物を返す。
func (s *PersonaService) List(ctx context.Context) ([]*model.Persona, error) {
	personas, err := s.personas.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("人物一覧の取得に失敗しました: %w", err)
	}
	return personas, nil
}

// Search は氏名・RUT・手配理由・手配場所で人物を検索する。
// クエリが空の場合は全件を返す。
func (s *PersonaService) Search(ctx context.Context, query string) ([]*model.Persona, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	personas, err := s.personas.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("人物の検索に失敗しました: %w", err)
	}
	return personas, nil
}

// Get は指定IDの人物を返す。
func (s *PersonaService) Get(ctx context.Context, id string) (*model.Persona, error) {
	if err := validateID("persona", id); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// Create は人物を登録する。RUTは正規化して一意性を確認する。
func (s *PersonaService) Create(ctx context.Context, in PersonaInput) (*model.Persona, error) {
	fullName := s.sanitizer.Clean(in.FullName)
	if fullName == "" || strings.TrimSpace(in.RUT) == "" {
		return nil, model.NewValidationError("Los campos nombreCompleto y rut son requeridos.")
	}

	rut, err := NormalizeRUT(in.RUT)
	if err != nil {
		return nil, model.NewValidationError("El RUT proporcionado no es válido.")
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Persona{
		ID:        uuid.NewString(),
		FullName:  fullName,
		RUT:       rut,
		Address:   orUnknown(s.sanitizer.Clean(in.Address)),
		Phone:     orUnknown(s.sanitizer.Clean(in.Phone)),
		Email:     orUnknown(email),
		Age:       in.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.personas.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateRUTError()
		}
		return nil, fmt.Errorf("人物の登録に失敗しました: %w", err)
	}

	slog.Info("persona created", slog.String("persona_id", p.ID))
	return p, nil
}

// Update は人物の指定項目を更新する。
func (s *PersonaService) Update(ctx context.Context, id string, patch PersonaPatch) (*model.Persona, error) {
	if err := validateID("persona", id); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.FullName != nil {
		name := s.sanitizer.Clean(*patch.FullName)
		if name == "" {
			return nil, model.NewValidationError("El campo nombreCompleto no puede estar vacío.")
		}
		p.FullName = name
	}
	if patch.RUT != nil {
		rut, err := NormalizeRUT(*patch.RUT)
		if err != nil {
			return nil, model.NewValidationError("El RUT proporcionado no es válido.")
		}
		p.RUT = rut
	}
	if patch.Address != nil {
		p.Address = orUnknown(s.sanitizer.Clean(*patch.Address))
	}
	if patch.Phone != nil {
		p.Phone = orUnknown(s.sanitizer.Clean(*patch.Phone))
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		p.Email = orUnknown(email)
	}
	if patch.Age != nil {
		if err := validateAge(patch.Age); err != nil {
			return nil, err
		}
		p.Age = patch.Age
	}

	return s.save(ctx, p)
}

// Delete は人物を削除する。車両を所有している場合は削除しない。
func (s *PersonaService) Delete(ctx context.Context, id string) error {
	if err := validateID("persona", id); err != nil {
		return err
	}

	owned, err := s.vehicles.CountByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("所有車両の確認に失敗しました: %w", err)
	}
	if owned > 0 {
		return model.NewPersonOwnsVehiclesError()
	}

	deleted, err := s.personas.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("人物の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewPersonNotFoundError()
	}

	slog.Info("persona deleted", slog.String("persona_id", id))
	return nil
}

// MarkWanted は人物を手配中として登録する。手配理由は必須。
func (s *PersonaService) MarkWanted(ctx context.Context, id string, info model.WantedInfo) (*model.Persona, error) {
	if err := validateID("persona", id); err != nil {
		return nil, err
	}

	reason := s.sanitizer.Clean(info.Reason)
	if reason == "" {
		return nil, model.NewValidationError("El campo motivo_busqueda es requerido.")
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Wanted = true
	p.WantedReason = reason
	p.PhysicalDescription = s.sanitizer.Clean(info.PhysicalDescription)
	p.WantedLocation = s.sanitizer.Clean(info.Location)

	return s.save(ctx, p)
}

// UnmarkWanted は人物の手配を解除し、手配情報を消去する。
func (s *PersonaService) UnmarkWanted(ctx context.Context, id string) (*model.Persona, error) {
	if err := validateID("persona", id); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Wanted = false
	p.WantedReason = ""
	p.PhysicalDescription = ""
	p.WantedLocation = ""

	return s.save(ctx, p)
}

func (s *PersonaService) find(ctx context.Context, id string) (*model.Persona, error) {
	p, err := s.personas.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("人物の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPersonNotFoundError()
	}
	return p, nil
}

func (s *PersonaService) save(ctx context.Context, p *model.Persona) (*model.Persona, error) {
	p.UpdatedAt = s.now()
	if err := s.personas.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateRUTError()
		}
		return nil, fmt.Errorf("人物の更新に失敗しました: %w", err)
	}
	return p, nil
}

// normalizeEmail はメールアドレスを小文字化して形式を検証する。空文字列は許容する。
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || email == strings.ToLower(model.DefaultUnknownValue) {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.NewValidationError("El email proporcionado no es válido.")
	}
	return email, nil
}

func validateAge(age *int) error {
	if age != nil && (*age < 0 || *age > maxAge) {
		return model.NewValidationError("La edad debe estar entre 0 y 130.")
	}
	return nil
}
