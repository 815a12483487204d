package model

import "time"

// DefaultUnknownValue は任意項目が未入力の場合に保存される値。
const DefaultUnknownValue = "Sin información"

// DefaultVehicleImageURL は画像URL未指定の車両に設定される画像。
const DefaultVehicleImageURL = "https://via.placeholder.com/150"

// Persona は登録された人物（車両所有者など）を表す。
type Persona struct {
	ID                  string    `json:"_id"`
	FullName            string    `json:"nombreCompleto"`
	RUT                 string    `json:"rut"`
	Address             string    `json:"direccion"`
	Phone               string    `json:"telefono"`
	Email               string    `json:"email"`
	Age                 *int      `json:"edad,omitempty"`
	Wanted              bool      `json:"buscado"`
	WantedReason        string    `json:"motivo_busqueda,omitempty"`
	PhysicalDescription string    `json:"descripcion_fisica,omitempty"`
	WantedLocation      string    `json:"lugar_busqueda,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// WantedInfo は人物を「buscado」として登録する際の情報。
type WantedInfo struct {
	Reason              string `json:"motivo_busqueda"`
	PhysicalDescription string `json:"descripcion_fisica"`
	Location            string `json:"lugar_busqueda"`
}

// Vehicle は登録車両を表す。Plate（patente）は大文字で一意。
type Vehicle struct {
	ID           string    `json:"_id"`
	Plate        string    `json:"patente"`
	Brand        string    `json:"marca"`
	Model        string    `json:"modelo"`
	Type         string    `json:"tipo_vehiculo,omitempty"`
	Color        string    `json:"color"`
	Year         int       `json:"anio"`
	ImageURL     string    `json:"imagen_url"`
	OwnerID      *string   `json:"-"`
	Owner        *Persona  `json:"propietario,omitempty"`
	Wanted       bool      `json:"buscado"`
	RegisteredAt time.Time `json:"fechaRegistro"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Fine は車両に紐付く交通違反の罰金（multa）を表す。
// Amountはチリペソ単位の非負整数。
type Fine struct {
	ID          string    `json:"_id"`
	VehicleID   string    `json:"vehiculo"`
	Reason      string    `json:"motivo"`
	Place       string    `json:"lugar"`
	Description string    `json:"descripcion"`
	Amount      int64     `json:"monto"`
	Paid        bool      `json:"pagada"`
	IssuedAt    time.Time `json:"fecha"`
}

// FineOwner は公開罰金一覧に表示する所有者の要約。
type FineOwner struct {
	FullName string `json:"nombreCompleto,omitempty"`
	RUT      string `json:"rut,omitempty"`
	Age      *int   `json:"edad,omitempty"`
}

// RecentFine は公開用の最新罰金一覧の1行。
type RecentFine struct {
	Plate       string     `json:"patente"`
	Owner       *FineOwner `json:"propietario,omitempty"`
	Reason      string     `json:"motivo"`
	Amount      int64      `json:"monto"`
	IssuedAt    time.Time  `json:"fecha"`
	Place       string     `json:"lugar"`
	Description string     `json:"descripcion"`
	Paid        bool       `json:"pagada"`
}
