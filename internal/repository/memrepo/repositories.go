package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/google/uuid"
)

type UserRepository struct {
	s    *Store
	inTx bool
}

func (r *UserRepository) CreateUser(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
	defer guard(r.s, r.inTx)()

	email := strings.ToLower(args.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return nil, fmt.Errorf("[memrepo/creating user `%s`] %w", args.Email, domain.ErrDuplicateKey)
		}
	}
	role := args.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	now := r.s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		DisplayName:  args.DisplayName,
		Role:         role,
		PasswordHash: args.PasswordHash,
	}
	r.s.users[user.ID] = user
	return &user, nil
}

func (r *UserRepository) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	defer guard(r.s, r.inTx)()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("finding user by email `%s`", email)
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	defer guard(r.s, r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("finding user by id `%s`", id)
	}
	return &u, nil
}

func (r *UserRepository) GetCreditsForUpdate(_ context.Context, id string) (int64, error) {
	defer guard(r.s, r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return 0, notFound("locking credits of user `%s`", id)
	}
	return u.Credits, nil
}

func (r *UserRepository) SetCredits(_ context.Context, id string, credits int64) error {
	defer guard(r.s, r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return notFound("setting credits of user `%s`", id)
	}
	if credits < 0 {
		return fmt.Errorf("[memrepo/setting credits of user `%s`] %w", id, domain.ErrInsufficientCredits)
	}
	u.Credits = credits
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

type TransactionRepository struct {
	s    *Store
	inTx bool
}

func (r *TransactionRepository) Create(
	_ context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	defer guard(r.s, r.inTx)()

	if _, ok := r.s.users[args.UserID]; !ok {
		return nil, notFound("creating transaction for user `%s`", args.UserID)
	}
	if args.Type == domain.TransactionOrderPayment && args.OrderID != nil {
		for _, t := range r.s.transactions {
			if t.Type == domain.TransactionOrderPayment && t.OrderID != nil && *t.OrderID == *args.OrderID {
				return nil, fmt.Errorf("[memrepo/creating payment for order `%s`] %w",
					*args.OrderID, domain.ErrDuplicateKey)
			}
		}
	}

	trx := domain.Transaction{
		ID:           uuid.NewString(),
		Seq:          r.s.nextSeq(),
		CreatedAt:    r.s.now(),
		UserID:       args.UserID,
		Amount:       args.Amount,
		Type:         args.Type,
		OrderID:      args.OrderID,
		BalanceAfter: args.BalanceAfter,
	}
	r.s.transactions = append(r.s.transactions, trx)
	return &trx, nil
}

func (r *TransactionRepository) GetByUserID(
	_ context.Context,
	userID string,
	limit uint,
) ([]domain.Transaction, error) {
	defer guard(r.s, r.inTx)()

	var res []domain.Transaction
	for i := len(r.s.transactions) - 1; i >= 0 && uint(len(res)) < limit; i-- {
		if r.s.transactions[i].UserID == userID {
			res = append(res, r.s.transactions[i])
		}
	}
	return res, nil
}

type OrderRepository struct {
	s    *Store
	inTx bool
}

func (r *OrderRepository) Create(_ context.Context, order domain.Order) (*domain.Order, error) {
	defer guard(r.s, r.inTx)()

	if _, exists := r.s.orders[order.ID]; exists {
		return nil, fmt.Errorf("[memrepo/creating order `%s`] %w", order.ID, domain.ErrDuplicateKey)
	}
	if order.UserID != nil {
		if _, ok := r.s.users[*order.UserID]; !ok {
			return nil, notFound("creating order for user `%s`", *order.UserID)
		}
	}
	now := r.s.now()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.SchemaVersion = domain.OrderSchemaVersion
	if order.UploadedFiles == nil {
		order.UploadedFiles = []domain.FileDescriptor{}
	}
	order = cloneOrder(order)
	r.s.orders[order.ID] = orderRecord{order: order, seq: r.s.nextSeq()}

	created := cloneOrder(order)
	return &created, nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	defer guard(r.s, r.inTx)()
	return r.find(id)
}

func (r *OrderRepository) FindByIDForUpdate(_ context.Context, id string) (*domain.Order, error) {
	defer guard(r.s, r.inTx)()
	return r.find(id)
}

func (r *OrderRepository) GetByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	defer guard(r.s, r.inTx)()

	return r.collect(func(o *domain.Order) bool {
		return o.UserID != nil && *o.UserID == userID
	}), nil
}

func (r *OrderRepository) Find(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	defer guard(r.s, r.inTx)()

	// YYYY-MM-DD сравнивается лексикографически в том же порядке, что и даты.
	return r.collect(func(o *domain.Order) bool {
		if filter.Status != nil && o.Status != *filter.Status {
			return false
		}
		if filter.PickupFrom != "" && o.PickupDate < filter.PickupFrom {
			return false
		}
		if filter.PickupTo != "" && o.PickupDate > filter.PickupTo {
			return false
		}
		return true
	}), nil
}

func (r *OrderRepository) UpdateStatus(
	_ context.Context,
	id string,
	status domain.OrderStatusType,
) (*domain.Order, error) {
	defer guard(r.s, r.inTx)()

	rec, ok := r.s.orders[id]
	if !ok {
		return nil, notFound("updating status of order `%s`", id)
	}
	rec.order.Status = status
	rec.order.UpdatedAt = r.s.now()
	r.s.orders[id] = rec

	updated := cloneOrder(rec.order)
	return &updated, nil
}

func (r *OrderRepository) UpdateFiles(_ context.Context, args repoargs.UpdateOrderFiles) (*domain.Order, error) {
	defer guard(r.s, r.inTx)()

	rec, ok := r.s.orders[args.OrderID]
	if !ok {
		return nil, notFound("updating files of order `%s`", args.OrderID)
	}
	rec.order.UploadedFiles = append([]domain.FileDescriptor(nil), args.UploadedFiles...)
	rec.order.UploadsComplete = args.UploadsComplete
	rec.order.UpdatedAt = r.s.now()
	r.s.orders[args.OrderID] = rec

	updated := cloneOrder(rec.order)
	return &updated, nil
}

func (r *OrderRepository) find(id string) (*domain.Order, error) {
	rec, ok := r.s.orders[id]
	if !ok {
		return nil, notFound("finding order `%s`", id)
	}
	order := cloneOrder(rec.order)
	return &order, nil
}

// collect выбирает заказы по условию, новые первыми.
func (r *OrderRepository) collect(match func(o *domain.Order) bool) []domain.Order {
	var records []orderRecord
	for _, rec := range r.s.orders {
		if match(&rec.order) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq > records[j].seq
	})
	orders := make([]domain.Order, len(records))
	for i, rec := range records {
		orders[i] = cloneOrder(rec.order)
	}
	return orders
}

func cloneOrder(o domain.Order) domain.Order {
	o.CartItems = append([]domain.CartItem(nil), o.CartItems...)
	o.UploadedFiles = append([]domain.FileDescriptor{}, o.UploadedFiles...)
	return o
}
