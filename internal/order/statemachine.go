package order

import (
	"context"

	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateMachine moves orders through their lifecycle after creation.
type StateMachine struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	clock  common.Clock
	pub    domain.Publisher
}

func NewStateMachine(db *gorm.DB, ledger *inventory.Ledger, clock common.Clock, pub domain.Publisher) *StateMachine {
	if clock == nil {
		clock = common.SystemClock
	}
	if pub == nil {
		pub = domain.NopPublisher
	}
	return &StateMachine{db: db, ledger: ledger, clock: clock, pub: pub}
}

// UpdateOrderStatus applies one transition. Cancelling credits every line
// back to stock and refunds a paid order; completing stamps completedAt.
func (s *StateMachine) UpdateOrderStatus(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error) {
	return s.transition(ctx, orderID, "", to)
}

// CancelPending cancels an order only while it is still pending. The
// status is checked under the order row lock, so an order confirmed by
// staff in the meantime fails with an InvalidTransitionError.
func (s *StateMachine) CancelPending(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderPending, domain.OrderCancelled)
}

// transition moves the order to status to. A non-empty want must match the
// locked current status.
func (s *StateMachine) transition(ctx context.Context, orderID int64, want, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, &domain.InvalidArgumentError{Field: "status", Message: "unknown order status " + string(to)}
	}
	var (
		order *domain.Order
		from  domain.OrderStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&o, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Entity: "order", ID: orderID}
		}
		if err != nil {
			return err
		}
		from = o.Status
		if (want != "" && from != want) || !from.CanTransition(to) {
			return &domain.InvalidTransitionError{OrderNumber: o.OrderNumber, From: from, To: to}
		}

		now := s.clock.Now()
		updates := map[string]interface{}{"status": to, "updated_at": now}
		switch to {
		case domain.OrderCompleted:
			updates["completed_at"] = now
		case domain.OrderCancelled:
			updates["cancelled_at"] = now
			if o.PaymentStatus == domain.PaymentPaid {
				updates["payment_status"] = domain.PaymentRefunded
			}
			if err := s.restock(ctx, tx, &o); err != nil {
				return err
			}
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
			return err
		}

		order, err = getOrder(tx, o.ID)
		return err
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			return nil, errors.Wrapf(err, "update status of order %d", orderID)
		}
		return nil, err
	}

	zap.L().Info("order status changed",
		zap.String("namespace", "order"),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	s.pub.Publish(domain.TopicOrderStatusChanged, domain.OrderStatusChanged{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        from,
		To:          to,
	})
	return order, nil
}

// restock credits the quantities of every order line. Lines whose product
// has been deleted are skipped.
func (s *StateMachine) restock(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	var items []domain.OrderItem
	if err := tx.Where("order_id = ?", o.ID).Order("product_id, id").Find(&items).Error; err != nil {
		return err
	}
	ledger := s.ledger.WithTx(tx)
	for _, item := range items {
		_, err := ledger.StockIn(ctx, inventory.Movement{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Type:      domain.MovementStockIn,
			Reason:    "order cancelled #" + o.OrderNumber,
			Reference: domain.OrderReference(o.ID),
		})
		if domain.IsKind(err, domain.KindNotFound) {
			zap.L().Warn("restock skipped, product no longer exists",
				zap.String("namespace", "order"),
				zap.String("order_number", o.OrderNumber),
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
