package repoargs

import "github.com/fsdevblog/printahead/internal/domain"

type CreateTransaction struct {
	UserID       string
	Amount       int64
	Type         domain.TransactionType
	OrderID      *string
	BalanceAfter int64
}
