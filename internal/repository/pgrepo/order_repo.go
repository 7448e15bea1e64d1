package pgrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, created_at, updated_at, user_id, customer_name, customer_phone, customer_email,
	cart_items, uploaded_files, files_expected, uploads_complete, total, pickup_date, pickup_time, notes,
	payment_method, status, schema_version`

const pickupDateLayout = "2006-01-02"

type OrderRepository struct {
	conn uow.DBTX
}

func NewOrderRepository(conn uow.DBTX) *OrderRepository {
	return &OrderRepository{conn: conn}
}

// Create сохраняет заказ. ID генерирует сервисный слой, чтобы списание кредитов могло ссылаться на заказ
// до его вставки.
func (o *OrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	cartItems, itemsErr := json.Marshal(order.CartItems)
	if itemsErr != nil {
		return nil, convertErr(itemsErr, "encoding cart items of order `%s`", order.ID)
	}
	files := order.UploadedFiles
	if files == nil {
		files = []domain.FileDescriptor{}
	}
	uploadedFiles, filesErr := json.Marshal(files)
	if filesErr != nil {
		return nil, convertErr(filesErr, "encoding files of order `%s`", order.ID)
	}
	pickupDate, dateErr := time.Parse(pickupDateLayout, order.PickupDate)
	if dateErr != nil {
		return nil, convertErr(dateErr, "parsing pickup date of order `%s`", order.ID)
	}

	row := o.conn.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, customer_name, customer_phone, customer_email, cart_items,
			uploaded_files, files_expected, uploads_complete, total, pickup_date, pickup_time, notes,
			payment_method, status, schema_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+orderColumns,
		order.ID,
		order.UserID,
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerEmail,
		cartItems,
		uploadedFiles,
		order.FilesExpected,
		order.UploadsComplete,
		order.Total,
		pickupDate,
		order.PickupTime,
		order.Notes,
		string(order.PaymentMethod),
		string(order.Status),
		domain.OrderSchemaVersion,
	)
	created, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order `%s`", order.ID)
	}
	return created, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding order `%s`", id)
	}
	return order, nil
}

// FindByIDForUpdate читает заказ с блокировкой строки. Вызывать только внутри uow.Do.
func (o *OrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking order `%s`", id)
	}
	return order, nil
}

// GetByUserID Возвращает список заказов по id юзера, отсортированный по дате создания по убыванию.
func (o *OrderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := o.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, convertErr(err, "getting orders of user `%s`", userID)
	}
	return orders, nil
}

// Find возвращает заказы по фильтру, новые первыми.
func (o *OrderRepository) Find(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PickupFrom != "" {
		from, err := time.Parse(pickupDateLayout, filter.PickupFrom)
		if err != nil {
			return nil, convertErr(err, "parsing pickup date from")
		}
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("pickup_date >= $%d", len(args)))
	}
	if filter.PickupTo != "" {
		to, err := time.Parse(pickupDateLayout, filter.PickupTo)
		if err != nil {
			return nil, convertErr(err, "parsing pickup date to")
		}
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("pickup_date <= $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	orders, err := o.query(ctx, query, args...)
	if err != nil {
		return nil, convertErr(err, "finding orders")
	}
	return orders, nil
}

func (o *OrderRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.OrderStatusType,
) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
		id, string(status)))
	if err != nil {
		return nil, convertErr(err, "updating status of order `%s`", id)
	}
	return order, nil
}

func (o *OrderRepository) UpdateFiles(ctx context.Context, args repoargs.UpdateOrderFiles) (*domain.Order, error) {
	files, encErr := json.Marshal(args.UploadedFiles)
	if encErr != nil {
		return nil, convertErr(encErr, "encoding files of order `%s`", args.OrderID)
	}
	order, err := scanOrder(o.conn.QueryRow(ctx,
		`UPDATE orders SET uploaded_files = $2, uploads_complete = $3, updated_at = NOW()
		WHERE id = $1 RETURNING `+orderColumns,
		args.OrderID, files, args.UploadsComplete))
	if err != nil {
		return nil, convertErr(err, "updating files of order `%s`", args.OrderID)
	}
	return order, nil
}

func (o *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := o.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, *order)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr //nolint:wrapcheck
	}
	return orders, nil
}

// scanOrder читает строку заказа и проверяет, что запись соответствует текущей схеме.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var cartItems, uploadedFiles []byte
	var pickupDate time.Time
	var paymentMethod, status string

	if err := row.Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.UserID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&cartItems,
		&uploadedFiles,
		&order.FilesExpected,
		&order.UploadsComplete,
		&order.Total,
		&pickupDate,
		&order.PickupTime,
		&order.Notes,
		&paymentMethod,
		&status,
		&order.SchemaVersion,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if order.SchemaVersion != domain.OrderSchemaVersion {
		return nil, fmt.Errorf("unsupported order schema version %d", order.SchemaVersion)
	}
	order.PaymentMethod = domain.PaymentMethodType(paymentMethod)
	order.Status = domain.OrderStatusType(status)
	if !order.PaymentMethod.Valid() || !order.Status.Valid() {
		return nil, fmt.Errorf("malformed order record: payment method %q, status %q", paymentMethod, status)
	}
	order.PickupDate = pickupDate.Format(pickupDateLayout)

	if err := json.Unmarshal(cartItems, &order.CartItems); err != nil {
		return nil, fmt.Errorf("decoding cart items: %w", err)
	}
	if err := json.Unmarshal(uploadedFiles, &order.UploadedFiles); err != nil {
		return nil, fmt.Errorf("decoding uploaded files: %w", err)
	}
	return &order, nil
}
