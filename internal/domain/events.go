package domain

// EventType представляет тип события для внешнего эмиттера уведомлений
type EventType string

const (
	EventOrderPlaced      EventType = "order_placed"
	EventOrderCancelled   EventType = "order_cancelled"
	EventOrderStatus      EventType = "order_status"
	EventOrderShipping    EventType = "order_shipping"
	EventOrderDelivered   EventType = "order_delivered"
	EventDepositPending   EventType = "deposit_pending"
	EventDepositConfirmed EventType = "deposit_confirmed"
	EventWithdrawal       EventType = "withdrawal"
	EventTransferOut      EventType = "transfer_out"
	EventTransferIn       EventType = "transfer_in"
)

// Event представляет событие, публикуемое после фиксации изменения.
// Доставка best-effort: сбой эмиттера никогда не откатывает уже
// зафиксированную финансовую или складскую операцию.
type Event struct {
	Type    EventType `json:"type"`
	UserID  int64     `json:"user_id"`
	OrderID *int64    `json:"order_id,omitempty"`
	Amount  *int64    `json:"amount,omitempty"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Notifier определяет fire-and-forget отправку событий. Вызывается только
// после commit и не должен блокировать запрос.
type Notifier interface {
	Notify(event Event)
}
