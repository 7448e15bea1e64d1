package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSchemaVersion текущая версия формы записи заказа. Записи с другой версией репозитории не читают.
const OrderSchemaVersion = 1

type User struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string
	DisplayName  string
	Role         RoleType
	Credits      int64
	PasswordHash string
}

// Transaction запись журнала кредитов. Записи только добавляются.
type Transaction struct {
	ID           string
	Seq          int64
	CreatedAt    time.Time
	UserID       string
	Amount       int64
	Type         TransactionType
	OrderID      *string
	BalanceAfter int64
}

type FileDescriptor struct {
	URL      string `json:"url"`
	Path     string `json:"path"      validate:"required"`
	FileName string `json:"fileName"  validate:"required"`
	Size     int64  `json:"size"      validate:"gte=0"`
	Type     string `json:"type"`
	// Key уникальный ключ объекта, с ним же повторяют неудачную загрузку.
	Key      string `json:"key,omitempty"`
}

type CartItem struct {
	ID    string       `json:"id"`
	Type  CartItemType `json:"type"            validate:"required,oneof=stationery print"`
	Name  string       `json:"name"            validate:"required,max=255"`
	Price int64        `json:"price"           validate:"gte=0"`
	// Meta строка для показа, например "A4 - B/W - 2 copies".
	Meta    string           `json:"meta,omitempty"  validate:"max=1024"`
	Files   []FileDescriptor `json:"files,omitempty" validate:"omitempty,dive"`
	AddedAt time.Time        `json:"addedAt"`
}

type Order struct {
	ID              string            `json:"id"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	UserID          *string           `json:"userId"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	CustomerEmail   *string           `json:"customerEmail"`
	CartItems       []CartItem        `json:"cartItems"`
	UploadedFiles   []FileDescriptor  `json:"uploadedFiles"`
	FilesExpected   int               `json:"filesExpected"`
	UploadsComplete bool              `json:"uploadsComplete"`
	Total           int64             `json:"total"`
	PickupDate      string            `json:"pickupDate"`
	PickupTime      string            `json:"pickupTime"`
	Notes           string            `json:"notes"`
	PaymentMethod   PaymentMethodType `json:"paymentMethod"`
	Status          OrderStatusType   `json:"status"`
	SchemaVersion   int               `json:"schemaVersion"`
}

// ShortID первые 8 символов ID заказа, показываются покупателю.
func (o *Order) ShortID() string {
	if len(o.ID) <= 8 { //nolint:mnd
		return o.ID
	}
	return o.ID[:8]
}

// OrderFilter фильтр выборки заказов для админки. Даты в формате YYYY-MM-DD, границы включительно.
type OrderFilter struct {
	Status     *OrderStatusType
	PickupFrom string
	PickupTo   string
}

type OrderEvent struct {
	ID             string          `json:"id"`
	Type           OrderEventType  `json:"type"`
	Order          Order           `json:"order"`
	PreviousStatus OrderStatusType `json:"previousStatus,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

type PrintSuggestion struct {
	ColorMode      string          `json:"colorMode"`
	Sides          string          `json:"sides"`
	Copies         int             `json:"copies"`
	PaperSize      string          `json:"paperSize"`
	Binding        string          `json:"binding"`
	Quality        string          `json:"quality"`
	Recommendation string          `json:"recommendation"`
	EstimatedPrice decimal.Decimal `json:"estimatedPrice"`
	Source         string          `json:"source"`
}
