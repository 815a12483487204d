// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, registry, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodePersonNotFound   = "PERSON_NOT_FOUND"
	ErrCodeOwnerNotFound    = "OWNER_NOT_FOUND"
	ErrCodeDuplicateRUT     = "DUPLICATE_RUT"
	ErrCodePersonHasVehicle = "PERSON_OWNS_VEHICLES"
	ErrCodeVehicleNotFound  = "VEHICLE_NOT_FOUND"
	ErrCodeDuplicatePlate   = "DUPLICATE_PLATE"
	ErrCodeNoVehicleMatch   = "NO_VEHICLE_MATCH"
	ErrCodeFineNotFound     = "FINE_NOT_FOUND"
	ErrCodeMissingQuery     = "MISSING_QUERY"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Acceso no autorizado. Por favor, inicia sesión.",
		Category: "auth",
		Action:   "Inicia sesión con Discord.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 必要なロールは開示しない。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "No tienes los permisos necesarios para acceder a esta función.",
		Category: "auth",
		Action:   "Solicita los permisos a un administrador.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "No se pudo interpretar el cuerpo de la solicitud.",
		Category: "validation",
		Action:   "Envía un cuerpo JSON válido.",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Revisa los campos enviados.",
	}
}

// NewInvalidIDError は不正なID形式のエラーを生成する。
func NewInvalidIDError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("ID de %s inválido.", kind),
		Category: "validation",
		Action:   "Verifica el identificador.",
	}
}

// NewPersonNotFoundError は人物未検出エラーを生成する。
func NewPersonNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePersonNotFound,
		Message:  "Persona no encontrada.",
		Category: "registry",
		Action:   "Verifica el identificador de la persona.",
	}
}

// NewOwnerNotFoundError は所有者RUTに該当する人物がいない場合のエラーを生成する。
func NewOwnerNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerNotFound,
		Message:  "Propietario no encontrado con el RUT proporcionado.",
		Category: "registry",
		Action:   "Registra primero a la persona propietaria.",
	}
}

// NewDuplicateRUTError はRUT重複エラーを生成する。
func NewDuplicateRUTError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRUT,
		Message:  "El RUT ya está registrado para otra persona.",
		Category: "registry",
		Action:   "Busca a la persona existente.",
	}
}

// NewPersonOwnsVehiclesError は車両所有中の人物を削除しようとした場合のエラーを生成する。
func NewPersonOwnsVehiclesError() *APIError {
	return &APIError{
		Code:     ErrCodePersonHasVehicle,
		Message:  "No se puede eliminar la persona porque es propietaria de uno o más vehículos.",
		Category: "registry",
		Action:   "Desvincula o elimina los vehículos primero.",
	}
}

// NewVehicleNotFoundError は車両未検出エラーを生成する。
func NewVehicleNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeVehicleNotFound,
		Message:  "Vehículo no encontrado.",
		Category: "registry",
		Action:   "Verifica la patente o el identificador del vehículo.",
	}
}

// NewDuplicatePlateError はパテンテ重複エラーを生成する。
func NewDuplicatePlateError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicatePlate,
		Message:  "Ya existe un vehículo registrado con esta patente.",
		Category: "registry",
		Action:   "Busca el vehículo existente.",
	}
}

// NewNoVehicleMatchError は車両検索の結果が0件の場合のエラーを生成する。
func NewNoVehicleMatchError() *APIError {
	return &APIError{
		Code:     ErrCodeNoVehicleMatch,
		Message:  "No se encontraron vehículos que coincidan con la búsqueda.",
		Category: "registry",
		Action:   "Prueba con otra patente, nombre o RUT.",
	}
}

// NewFineNotFoundError は罰金未検出エラーを生成する。
func NewFineNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeFineNotFound,
		Message:  "Multa no encontrada en este vehículo.",
		Category: "registry",
		Action:   "Verifica el identificador de la multa.",
	}
}

// NewMissingQueryError は検索クエリ未指定エラーを生成する。
func NewMissingQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingQuery,
		Message:  "El parámetro de búsqueda \"query\" es requerido.",
		Category: "validation",
		Action:   "Indica una patente, nombre o RUT.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Error interno del servidor.",
		Category: "system",
		Action:   "Inténtalo nuevamente en unos minutos.",
	}
}
