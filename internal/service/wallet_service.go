package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
)

const (
	DefaultTransactionsLimit uint = 50
	MaxTransactionsLimit     uint = 200
)

// WalletService кошелек кредитов юзера. Баланс в users.credits и журнал транзакций меняются только вместе,
// внутри одной транзакции uow, так что свертка журнала всегда равна балансу.
type WalletService struct {
	uow      uow.UOW
	userRepo UserRepository
	trxRepo  TransactionRepository
	metrics  WalletMetrics
}

func NewWalletService(u uow.UOW) (*WalletService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	trxRepo, trxRepoErr := uow.GetRepositoryAs[TransactionRepository](
		u,
		uow.RepositoryName(repoargs.TransactionRepoName),
	)
	if trxRepoErr != nil {
		return nil, trxRepoErr
	}
	return &WalletService{
		uow:      u,
		userRepo: userRepo,
		trxRepo:  trxRepo,
	}, nil
}

// SetMetrics подключает счетчики операций кошелька.
func (w *WalletService) SetMetrics(m WalletMetrics) *WalletService {
	w.metrics = m
	return w
}

// AddCredits зачисляет amount кредитов на счет юзера и добавляет запись purchase в журнал.
// amount должен быть положительным, иначе *domain.ValidationError.
func (w *WalletService) AddCredits(ctx context.Context, userID string, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be a positive integer")
	}

	var trx *domain.Transaction
	txErr := w.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		users, trxs, repoErr := walletRepos(tx)
		if repoErr != nil {
			return repoErr
		}

		current, err := users.GetCreditsForUpdate(c, userID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		newBalance := current + amount
		if err = users.SetCredits(c, userID, newBalance); err != nil {
			return err //nolint:wrapcheck
		}

		trx, err = trxs.Create(c, repoargs.CreateTransaction{
			UserID:       userID,
			Amount:       amount,
			Type:         domain.TransactionPurchase,
			BalanceAfter: newBalance,
		})
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("adding credits: %w", txErr)
	}

	if w.metrics != nil {
		w.metrics.CreditsAdded(amount)
	}
	return trx, nil
}

// DeductCredits списывает amount кредитов в оплату заказа orderID. orderID nil для списания без заказа.
// При недостатке средств возвращает domain.ErrInsufficientCredits и ничего не меняет.
func (w *WalletService) DeductCredits(
	ctx context.Context,
	userID string,
	amount int64,
	orderID *string,
) (*domain.Transaction, error) {
	var trx *domain.Transaction
	txErr := w.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		trx, err = w.DeductInTx(c, tx, userID, amount, orderID)
		return err
	})
	if txErr != nil {
		return nil, fmt.Errorf("deducting credits: %w", txErr)
	}
	return trx, nil
}

// DeductInTx списание кредитов внутри транзакции tx. Баланс перечитывается с блокировкой строки юзера,
// поэтому параллельные списания не могут увести баланс в минус.
func (w *WalletService) DeductInTx(
	ctx context.Context,
	tx uow.TX,
	userID string,
	amount int64,
	orderID *string,
) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be a positive integer")
	}

	users, trxs, repoErr := walletRepos(tx)
	if repoErr != nil {
		return nil, repoErr
	}

	current, err := users.GetCreditsForUpdate(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if current < amount {
		if w.metrics != nil {
			w.metrics.InsufficientCredits()
		}
		return nil, fmt.Errorf("balance %d, required %d: %w", current, amount, domain.ErrInsufficientCredits)
	}

	newBalance := current - amount
	if err = users.SetCredits(ctx, userID, newBalance); err != nil {
		return nil, err //nolint:wrapcheck
	}

	trx, err := trxs.Create(ctx, repoargs.CreateTransaction{
		UserID:       userID,
		Amount:       -amount,
		Type:         domain.TransactionOrderPayment,
		OrderID:      normalizeOrderID(orderID),
		BalanceAfter: newBalance,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if w.metrics != nil {
		w.metrics.CreditsDeducted(amount)
	}
	return trx, nil
}

// GetBalance возвращает текущий баланс. Для юзера без записи баланс 0.
func (w *WalletService) GetBalance(ctx context.Context, userID string) (int64, error) {
	user, err := w.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting balance: %w", err)
	}
	return user.Credits, nil
}

// GetTransactions возвращает журнал юзера, новые записи первыми. limit 0 означает DefaultTransactionsLimit.
func (w *WalletService) GetTransactions(
	ctx context.Context,
	userID string,
	limit uint,
) ([]domain.Transaction, error) {
	if limit == 0 {
		limit = DefaultTransactionsLimit
	}
	if limit > MaxTransactionsLimit {
		limit = MaxTransactionsLimit
	}
	transactions, err := w.trxRepo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting transactions: %w", err)
	}
	return transactions, nil
}

// normalizeOrderID пустой id заказа хранится как NULL.
func normalizeOrderID(orderID *string) *string {
	if orderID == nil || *orderID == "" {
		return nil
	}
	id := *orderID
	return &id
}

func walletRepos(tx uow.TX) (UserRepository, TransactionRepository, error) {
	users, err := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	trxs, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	return users, trxs, nil
}
