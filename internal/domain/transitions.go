package domain

// transitions допустимые переходы статусов заказа. completed и cancelled терминальные.
var transitions = map[OrderStatusType][]OrderStatusType{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:      {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransition проверяет, разрешен ли переход from -> to. Переход в тот же статус запрещен.
func CanTransition(from, to OrderStatusType) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses возвращает статусы, в которые можно перевести заказ из status.
func NextStatuses(status OrderStatusType) []OrderStatusType {
	next := transitions[status]
	res := make([]OrderStatusType, len(next))
	copy(res, next)
	return res
}
