package domain

type RoleType string

const (
	RoleCustomer RoleType = "customer"
	RoleAdmin    RoleType = "admin"
)

type TransactionType string

const (
	TransactionPurchase     TransactionType = "purchase"
	TransactionOrderPayment TransactionType = "order_payment"
)

func (t TransactionType) Valid() bool {
	return t == TransactionPurchase || t == TransactionOrderPayment
}

type OrderStatusType string

const (
	OrderStatusPending    OrderStatusType = "pending"
	OrderStatusProcessing OrderStatusType = "processing"
	OrderStatusReady      OrderStatusType = "ready"
	OrderStatusCompleted  OrderStatusType = "completed"
	OrderStatusCancelled  OrderStatusType = "cancelled"
)

// OrderStatuses все статусы заказа в порядке жизненного цикла.
var OrderStatuses = []OrderStatusType{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

func (s OrderStatusType) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для статусов, из которых нет переходов.
func (s OrderStatusType) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type PaymentMethodType string

const (
	PaymentMethodCredits PaymentMethodType = "credits"
	PaymentMethodCard    PaymentMethodType = "card"
	PaymentMethodUPI     PaymentMethodType = "upi"
	PaymentMethodCash    PaymentMethodType = "cash"
)

func (p PaymentMethodType) Valid() bool {
	switch p {
	case PaymentMethodCredits, PaymentMethodCard, PaymentMethodUPI, PaymentMethodCash:
		return true
	default:
		return false
	}
}

type CartItemType string

const (
	CartItemStationery CartItemType = "stationery"
	CartItemPrint      CartItemType = "print"
)

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order_created"
	OrderEventStatusChanged OrderEventType = "order_status_changed"
)
