package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/google/uuid"
)

// FakeCartItem позиция корзины со случайным названием и заданной ценой.
func FakeCartItem(price int64) domain.CartItem {
	return domain.CartItem{
		ID:      uuid.NewString(),
		Type:    domain.CartItemStationery,
		Name:    gofakeit.ProductName(),
		Price:   price,
		AddedAt: time.Now(),
	}
}

// FakeOrder заказ в статусе pending. userID nil для гостевого заказа.
func FakeOrder(userID *string, prices ...int64) domain.Order {
	email := gofakeit.Email()
	items := make([]domain.CartItem, len(prices))
	var total int64
	for i, p := range prices {
		items[i] = FakeCartItem(p)
		total += p
	}
	now := time.Now()
	return domain.Order{
		ID:              uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
		UserID:          userID,
		CustomerName:    gofakeit.Name(),
		CustomerPhone:   gofakeit.Phone(),
		CustomerEmail:   &email,
		CartItems:       items,
		UploadedFiles:   []domain.FileDescriptor{},
		UploadsComplete: true,
		Total:           total,
		PickupDate:      now.AddDate(0, 0, 1).Format(time.DateOnly),
		PickupTime:      "10:00 AM",
		PaymentMethod:   domain.PaymentMethodCash,
		Status:          domain.OrderStatusPending,
		SchemaVersion:   domain.OrderSchemaVersion,
	}
}

// FakeUser юзер с ролью role и балансом credits.
func FakeUser(role domain.RoleType, credits int64) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Role:        role,
		Credits:     credits,
	}
}
