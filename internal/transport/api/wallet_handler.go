package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	svs WalletServicer
}

func NewWalletHandler(svs WalletServicer) *WalletHandler {
	return &WalletHandler{
		svs: svs,
	}
}

type BalanceResponse struct {
	Credits int64 `json:"credits"`
}

// Balance GET RouteGroup + BalanceRoute.
func (w *WalletHandler) Balance(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := w.svs.GetBalance(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, BalanceResponse{Credits: balance})
}

type AddCreditsParams struct {
	Amount int64 `binding:"required,gt=0" json:"amount"`
}

type TransactionResponse struct {
	ID           string                 `json:"id"`
	Amount       int64                  `json:"amount"`
	Type         domain.TransactionType `json:"type"`
	OrderID      *string                `json:"orderId,omitempty"`
	BalanceAfter int64                  `json:"balanceAfter"`
	CreatedAt    string                 `json:"createdAt"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           t.ID,
		Amount:       t.Amount,
		Type:         t.Type,
		OrderID:      t.OrderID,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

// AddCredits POST RouteGroup + CreditsRoute. Покупка кредитов. Оплата имитируется, кредиты
// начисляются сразу.
func (w *WalletHandler) AddCredits(c *gin.Context) {
	var params AddCreditsParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transaction, err := w.svs.AddCredits(reqCtx, getUserIDFromContext(c), params.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, newTransactionResponse(transaction))
}

// Transactions GET RouteGroup + TransactionsRoute. Параметр limit необязательный.
func (w *WalletHandler) Transactions(c *gin.Context) {
	var limit uint64
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.ParseUint(raw, 10, 32)
		if err != nil {
			abortWithError(c, domain.NewValidationError("limit", "must be a positive number"))
			return
		}
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := w.svs.GetTransactions(reqCtx, getUserIDFromContext(c), uint(limit))
	if err != nil {
		abortWithError(c, err)
		return
	}
	response := make([]TransactionResponse, len(transactions))
	for i := range transactions {
		response[i] = newTransactionResponse(&transactions[i])
	}
	respond(c, http.StatusOK, response)
}
