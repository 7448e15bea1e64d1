package pgrepo

import (
	"context"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, seq, created_at, user_id, amount, type, order_id, balance_after`

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	row := t.conn.QueryRow(ctx,
		`INSERT INTO transactions (id, user_id, amount, type, order_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+transactionColumns,
		uuid.NewString(), args.UserID, args.Amount, string(args.Type), args.OrderID, args.BalanceAfter,
	)
	trx, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating %s transaction for user `%s`", args.Type, args.UserID)
	}
	return trx, nil
}

// GetByUserID возвращает последние limit транзакций юзера, новые первыми.
func (t *TransactionRepository) GetByUserID(
	ctx context.Context,
	userID string,
	limit uint,
) ([]domain.Transaction, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := t.conn.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, userID, safeLimit)
	if err != nil {
		return nil, convertErr(err, "getting transactions of user `%s`", userID)
	}
	defer rows.Close()

	var transactions = make([]domain.Transaction, 0, safeLimit)
	for rows.Next() {
		trx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction of user `%s`", userID)
		}
		transactions = append(transactions, *trx)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting transactions of user `%s`", userID)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var trx domain.Transaction
	var trxType string
	if err := row.Scan(
		&trx.ID,
		&trx.Seq,
		&trx.CreatedAt,
		&trx.UserID,
		&trx.Amount,
		&trxType,
		&trx.OrderID,
		&trx.BalanceAfter,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	trx.Type = domain.TransactionType(trxType)
	return &trx, nil
}
