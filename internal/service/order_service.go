package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/google/uuid"
)

type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	wallet    CreditDebiter
	publisher EventPublisher
	now       func() time.Time
}

func NewOrderService(u uow.UOW, wallet CreditDebiter, publisher EventPublisher) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err
	}
	return &OrderService{
		uow:       u,
		orderRepo: orderRepo,
		wallet:    wallet,
		publisher: publisher,
		now:       time.Now,
	}, nil
}

type CreateOrderArgs struct {
	UserID        *string                  `json:"userId"`
	CustomerName  string                   `json:"customerName"  validate:"required_without=UserID,max=255"`
	CustomerPhone string                   `json:"customerPhone" validate:"required_without=UserID,max=32"`
	CustomerEmail *string                  `json:"customerEmail" validate:"omitempty,email"`
	CartItems     []domain.CartItem        `json:"cartItems"     validate:"required,min=1,dive"`
	FilesExpected int                      `json:"filesExpected" validate:"gte=0"`
	PickupDate    string                   `json:"pickupDate"    validate:"required,datetime=2006-01-02"`
	PickupTime    string                   `json:"pickupTime"    validate:"required,max=32"`
	Notes         string                   `json:"notes"         validate:"max=2000"`
	PaymentMethod domain.PaymentMethodType `json:"paymentMethod" validate:"omitempty,oneof=credits card upi cash"`
}

// Create создает заказ в статусе pending.
//
// Алгоритм работы:
//  1. Проверяет аргументы, способ оплаты по умолчанию cash.
//  2. Считает сумму заказа по позициям корзины.
//  3. В одной транзакции списывает кредиты (если оплата кредитами) и сохраняет заказ. Транзакция списания
//     ссылается на ID заказа. При нехватке кредитов заказ не создается, ошибка domain.ErrInsufficientCredits.
//  4. После фиксации публикует событие order_created.
func (o *OrderService) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	if args.PaymentMethod == "" {
		args.PaymentMethod = domain.PaymentMethodCash
	}
	if args.UserID != nil && *args.UserID == "" {
		args.UserID = nil
	}
	if err := domain.Validate(args); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if args.PaymentMethod == domain.PaymentMethodCredits && args.UserID == nil {
		return nil, fmt.Errorf("creating order: %w",
			domain.NewValidationError("paymentMethod", "credits payment requires a signed in user"))
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          args.UserID,
		CustomerName:    args.CustomerName,
		CustomerPhone:   args.CustomerPhone,
		CustomerEmail:   args.CustomerEmail,
		CartItems:       snapshotItems(args.CartItems),
		UploadedFiles:   []domain.FileDescriptor{},
		FilesExpected:   args.FilesExpected,
		UploadsComplete: args.FilesExpected == 0,
		Total:           CartTotal(args.CartItems),
		PickupDate:      args.PickupDate,
		PickupTime:      args.PickupTime,
		Notes:           args.Notes,
		PaymentMethod:   args.PaymentMethod,
		Status:          domain.OrderStatusPending,
		SchemaVersion:   domain.OrderSchemaVersion,
	}

	var created *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		if order.PaymentMethod == domain.PaymentMethodCredits && order.Total > 0 {
			if _, err := o.wallet.DeductInTx(c, tx, *order.UserID, order.Total, &order.ID); err != nil {
				return err //nolint:wrapcheck
			}
		}

		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var err error
		created, err = repo.Create(c, order)
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("creating order: %w", txErr)
	}

	o.publish(ctx, domain.OrderEventCreated, created, "")
	return created, nil
}

// AttachFiles добавляет к заказу описания загруженных файлов. Операция идемпотентна: файлы с уже
// привязанным path не дублируются, повторный вызов с теми же файлами ничего не пишет.
func (o *OrderService) AttachFiles(
	ctx context.Context,
	orderID string,
	files []domain.FileDescriptor,
) (*domain.Order, error) {
	for i := range files {
		if err := domain.Validate(files[i]); err != nil {
			return nil, fmt.Errorf("attaching files: %w", err)
		}
	}

	var updated *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, err := repo.FindByIDForUpdate(c, orderID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		merged, added := mergeFiles(order.UploadedFiles, files)
		complete := len(merged) >= order.FilesExpected
		if added == 0 && complete == order.UploadsComplete {
			updated = order
			return nil
		}
		if order.Status.IsTerminal() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderClosed)
		}

		updated, err = repo.UpdateFiles(c, repoargs.UpdateOrderFiles{
			OrderID:         orderID,
			UploadedFiles:   merged,
			UploadsComplete: complete,
		})
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("attaching files: %w", txErr)
	}
	return updated, nil
}

// UpdateStatus переводит заказ в статус status. Недопустимый переход возвращает *domain.InvalidTransitionError.
func (o *OrderService) UpdateStatus(
	ctx context.Context,
	orderID string,
	status domain.OrderStatusType,
) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("updating order status: %w",
			domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status)))
	}

	var updated *domain.Order
	var previous domain.OrderStatusType
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, err := repo.FindByIDForUpdate(c, orderID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if !domain.CanTransition(order.Status, status) {
			return domain.NewInvalidTransitionError(order.Status, status)
		}
		previous = order.Status

		updated, err = repo.UpdateStatus(c, orderID, status)
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("updating order status: %w", txErr)
	}

	o.publish(ctx, domain.OrderEventStatusChanged, updated, previous)
	return updated, nil
}

func (o *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := o.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return order, nil
}

// GetUserOrders Возвращает заказы юзера отсортированные по дате создания по убыванию.
func (o *OrderService) GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := o.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user orders: %w", err)
	}
	return orders, nil
}

// GetAllOrders заказы всех юзеров по фильтру, новые первыми.
func (o *OrderService) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("getting orders: %w",
			domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status)))
	}
	for field, date := range map[string]string{"startDate": filter.PickupFrom, "endDate": filter.PickupTo} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("getting orders: %w",
				domain.NewValidationError(field, "must be a date in format YYYY-MM-DD"))
		}
	}

	orders, err := o.orderRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("getting orders: %w", err)
	}
	return orders, nil
}

func (o *OrderService) publish(
	ctx context.Context,
	eventType domain.OrderEventType,
	order *domain.Order,
	previous domain.OrderStatusType,
) {
	if o.publisher == nil || order == nil {
		return
	}
	o.publisher.Publish(ctx, domain.OrderEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		Order:          *order,
		PreviousStatus: previous,
		OccurredAt:     o.now(),
	})
}

// CartTotal сумма цен позиций.
func CartTotal(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total
}

// snapshotItems копирует позиции корзины, чтобы заказ не зависел от дальнейших изменений корзины.
func snapshotItems(items []domain.CartItem) []domain.CartItem {
	res := make([]domain.CartItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.Files = append([]domain.FileDescriptor(nil), item.Files...)
		res[i] = item
	}
	return res
}

// mergeFiles добавляет к existing файлы, которых там еще нет (ключ path). Возвращает итоговый список
// и количество добавленных.
func mergeFiles(existing, incoming []domain.FileDescriptor) ([]domain.FileDescriptor, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]domain.FileDescriptor, 0, len(existing)+len(incoming))
	for _, f := range existing {
		seen[f.Path] = struct{}{}
		merged = append(merged, f)
	}
	var added int
	for _, f := range incoming {
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = struct{}{}
		merged = append(merged, f)
		added++
	}
	return merged, added
}
