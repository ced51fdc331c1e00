package domain

import "time"

// Типы событий витрины, публикуемых через outbox.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventContactReceived      = "contact.received"
	EventNewsletterSubscribed = "newsletter.subscribed"
)

// Типы агрегатов для OutboxMessage.AggregateType.
const (
	AggregateCart       = "cart"
	AggregateContact    = "contact"
	AggregateNewsletter = "newsletter"
)

// CheckoutCompleted — payload события checkout.completed. Уведомление:
// записи заказа нигде не создаётся.
type CheckoutCompleted struct {
	OrderReference string       `json:"order_reference"`
	SessionID      string       `json:"session_id"`
	Summary        OrderSummary `json:"summary"`
	Lines          []CartLine   `json:"lines"`
	PlacedAt       time.Time    `json:"placed_at"`
}
