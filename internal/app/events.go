package app

import (
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/money"
	"go.uber.org/zap"
)

func (a *Application) subscribeEvents() {
	subscribe := func(topic string, fn interface{}) {
		if err := a.bus.SubscribeAsync(topic, fn, false); err != nil {
			zap.L().Error("subscribe event failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	subscribe(domain.TopicOrderCreated, func(o *domain.Order) {
		zap.L().Info("new order",
			zap.String("namespace", "events"),
			zap.String("order_number", o.OrderNumber),
			zap.Int("lines", len(o.Items)),
			zap.String("total", money.Format(o.Total)),
			zap.String("payment_status", string(o.PaymentStatus)))
	})

	subscribe(domain.TopicOrderStatusChanged, func(e domain.OrderStatusChanged) {
		zap.L().Info("order moved",
			zap.String("namespace", "events"),
			zap.String("order_number", e.OrderNumber),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)))
	})

	subscribe(domain.TopicLowStock, func(p domain.Product) {
		zap.L().Warn("low stock",
			zap.String("namespace", "events"),
			zap.Int64("product_id", p.ID),
			zap.String("name", p.Name),
			zap.Int("stock", p.Stock),
			zap.Int("min_stock", p.MinStock))
	})
}
