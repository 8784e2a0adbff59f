package domain

// Event bus topics.
const (
	TopicOrderCreated       = "order:created"
	TopicOrderStatusChanged = "order:status_changed"
	TopicLowStock           = "inventory:low_stock"
)

// Publisher is the subset of the event bus the services publish through.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ...interface{}) {}

// NopPublisher drops every event.
var NopPublisher Publisher = nopPublisher{}

// OrderStatusChanged is published after a status change commits.
type OrderStatusChanged struct {
	OrderID     int64
	OrderNumber string
	From        OrderStatus
	To          OrderStatus
}
