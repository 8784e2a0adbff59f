package order

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/pkg/common"
	"github.com/unicafe/cafeteria/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config holds order numbering and pricing settings.
type Config struct {
	NumberPrefix string
	TaxRate      decimal.Decimal
	// Location decides the calendar day of an order number; nil means UTC.
	Location *time.Location
}

// Assembler converts carts into orders.
type Assembler struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	seq    Sequencer
	clock  common.Clock
	pub    domain.Publisher
	cfg    Config
}

func NewAssembler(db *gorm.DB, ledger *inventory.Ledger, seq Sequencer, clock common.Clock, pub domain.Publisher, cfg Config) *Assembler {
	if seq == nil {
		seq = DBSequencer{}
	}
	if clock == nil {
		clock = common.SystemClock
	}
	if pub == nil {
		pub = domain.NopPublisher
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "ORD"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Assembler{db: db, ledger: ledger, seq: seq, clock: clock, pub: pub, cfg: cfg}
}

// GenerateOrderNumber assigns the next number of the current day within tx.
func (a *Assembler) GenerateOrderNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	day := a.clock.Now().In(a.cfg.Location).Format("20060102")
	seq, err := a.seq.Next(ctx, tx, day)
	if err != nil {
		return "", err
	}
	return FormatNumber(a.cfg.NumberPrefix, day, seq), nil
}

// CreateOrderFromCart turns a user's cart into a pending order in one
// transaction: stock is re-validated against live rows, lines are priced at
// the live product price, stock is debited as sales, and the cart is emptied
// and converted. Any failure leaves orders, stock and cart untouched.
func (a *Assembler) CreateOrderFromCart(ctx context.Context, cartID int64, notes, paymentMethod *string) (*domain.Order, error) {
	// A blank payment method counts as none: the order stays unpaid.
	if paymentMethod != nil {
		paymentMethod = common.StrPtr(strings.TrimSpace(*paymentMethod))
	}
	var order *domain.Order
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c domain.Cart
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&c, cartID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Entity: "cart", ID: cartID}
		}
		if err != nil {
			return err
		}
		if !c.IsActive() {
			return &domain.OwnershipMismatchError{Entity: "cart", ID: cartID, Reason: "cart is " + string(c.Status)}
		}
		userID, ok := c.Owner().UserID()
		if !ok {
			return &domain.OwnershipMismatchError{Entity: "cart", ID: cartID, Reason: "sign in to check out"}
		}

		// Product id order fixes the lock order across concurrent checkouts.
		var items []domain.CartItem
		if err := tx.Where("cart_id = ?", cartID).Order("product_id").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		products := make([]domain.Product, len(items))
		subtotal := money.Zero
		for i, item := range items {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&products[i], item.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "product", ID: item.ProductID}
			}
			if err != nil {
				return err
			}
			p := &products[i]
			if !p.HasStock(item.Quantity) {
				return &domain.InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   item.Quantity,
				}
			}
			subtotal = subtotal.Add(money.LineTotal(p.Price, item.Quantity))
		}
		subtotal = money.Round(subtotal)
		tax := money.Tax(subtotal, a.cfg.TaxRate)

		number, err := a.GenerateOrderNumber(ctx, tx)
		if err != nil {
			return err
		}
		order = &domain.Order{
			UserID:        userID,
			OrderNumber:   number,
			Status:        domain.OrderPending,
			PaymentStatus: domain.PaymentPending,
			PaymentMethod: paymentMethod,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         money.Sum(subtotal, tax),
			Notes:         notes,
		}
		if paymentMethod != nil {
			order.PaymentStatus = domain.PaymentPaid
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		ledger := a.ledger.WithTx(tx)
		for i, item := range items {
			p := &products[i]
			line := domain.OrderItem{
				OrderID:             order.ID,
				ProductID:           p.ID,
				ProductName:         p.Name,
				ProductDescription:  p.Description,
				UnitPrice:           p.Price,
				Quantity:            item.Quantity,
				Subtotal:            money.LineTotal(p.Price, item.Quantity),
				SpecialInstructions: item.SpecialInstructions,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			_, err := ledger.StockOut(ctx, inventory.Movement{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				Type:      domain.MovementSale,
				Reason:    "sale - order #" + number,
				Reference: domain.OrderReference(order.ID),
			})
			if err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Cart{}).Where("id = ?", cartID).Updates(map[string]interface{}{
			"status":     domain.CartConverted,
			"active_key": nil,
			"updated_at": a.clock.Now(),
		}).Error; err != nil {
			return err
		}

		return tx.Preload("Items", orderItems).Take(order, order.ID).Error
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			zap.L().Error("create order failed",
				zap.String("namespace", "order"),
				zap.Int64("cart_id", cartID),
				zap.Error(err))
			return nil, errors.Wrapf(err, "create order from cart %d", cartID)
		}
		zap.L().Debug("create order rejected",
			zap.String("namespace", "order"),
			zap.Int64("cart_id", cartID),
			zap.String("kind", domain.KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("order created",
		zap.String("namespace", "order"),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total", money.Format(order.Total)))
	a.pub.Publish(domain.TopicOrderCreated, order)
	return order, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("product_id, id")
}

// Get loads an order with its items.
func (a *Assembler) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(a.db.WithContext(ctx), id)
}

func getOrder(db *gorm.DB, id int64) (*domain.Order, error) {
	var o domain.Order
	err := db.Preload("Items", orderItems).Take(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load order %d", id)
	}
	return &o, nil
}

// ListForUser returns the user's orders, newest first.
func (a *Assembler) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []domain.Order
	err := a.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of user %d", userID)
	}
	return orders, nil
}
