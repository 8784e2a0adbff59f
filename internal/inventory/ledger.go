package inventory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxAdjustAttempts bounds transparent retries of a standalone adjustment
// that lost a compare-and-swap race.
const maxAdjustAttempts = 3

// Movement describes one stock change request.
type Movement struct {
	ProductID int64
	Quantity  int // signed delta for AdjustStock, positive magnitude for StockIn/StockOut
	Type      domain.MovementType
	ActorID   *int64
	Reason    string
	Reference domain.Reference
}

// Ledger owns product stock. Every stock change goes through AdjustStock,
// which writes the product row and one inventory log entry atomically.
type Ledger struct {
	db    *gorm.DB
	clock common.Clock
	inTx  bool
}

func NewLedger(db *gorm.DB, clock common.Clock) *Ledger {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Ledger{db: db, clock: clock}
}

// WithTx binds the ledger to an outer transaction. A bound ledger never
// retries; conflicts surface to the owner of the transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, clock: l.clock, inTx: true}
}

// AdjustStock applies a signed delta to a product's stock.
func (l *Ledger) AdjustStock(ctx context.Context, m Movement) (*domain.InventoryLog, error) {
	if !m.Type.Valid() {
		return nil, &domain.InvalidArgumentError{Field: "type", Message: "unknown movement type " + string(m.Type)}
	}
	if m.Quantity == 0 {
		return nil, &domain.InvalidArgumentError{Field: "quantity", Message: "delta must not be zero"}
	}
	if m.Type.IsDebit() && m.Quantity > 0 {
		return nil, &domain.InvalidArgumentError{Field: "quantity", Message: string(m.Type) + " requires a negative delta"}
	}
	if m.Type == domain.MovementStockIn && m.Quantity < 0 {
		return nil, &domain.InvalidArgumentError{Field: "quantity", Message: "stockIn requires a positive delta"}
	}

	attempts := 1
	if !l.inTx {
		attempts = maxAdjustAttempts
	}
	var (
		entry *domain.InventoryLog
		err   error
	)
	for i := 0; i < attempts; i++ {
		err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var e error
			entry, e = l.adjust(tx, m)
			return e
		})
		if !domain.IsKind(err, domain.KindConcurrencyConflict) {
			break
		}
		zap.L().Debug("stock adjustment conflict, retrying",
			zap.String("namespace", "inventory"),
			zap.Int64("product_id", m.ProductID),
			zap.Int("attempt", i+1))
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (l *Ledger) adjust(tx *gorm.DB, m Movement) (*domain.InventoryLog, error) {
	var product domain.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, m.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "product", ID: m.ProductID}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load product %d", m.ProductID)
	}

	previous := product.Stock
	next := previous + m.Quantity
	if next < 0 {
		return nil, &domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   previous,
			Requested:   -m.Quantity,
		}
	}
	status := product.DerivedStatus(next)

	// The stock predicate makes the write a compare-and-swap on databases
	// without row locks.
	res := tx.Model(&domain.Product{}).
		Where("id = ? AND stock = ?", product.ID, previous).
		Updates(map[string]interface{}{
			"stock":      next,
			"status":     status,
			"updated_at": l.clock.Now(),
		})
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "update stock of product %d", product.ID)
	}
	if res.RowsAffected == 0 {
		return nil, &domain.ConcurrencyConflictError{Entity: "product", ID: product.ID}
	}

	entry := &domain.InventoryLog{
		ProductID:     product.ID,
		ActorID:       m.ActorID,
		Type:          m.Type,
		Quantity:      m.Quantity,
		PreviousStock: previous,
		NewStock:      next,
		Reason:        m.Reason,
		CreatedAt:     l.clock.Now(),
	}
	entry.SetReference(m.Reference)
	if err := tx.Create(entry).Error; err != nil {
		return nil, errors.Wrapf(err, "append inventory log for product %d", product.ID)
	}

	zap.L().Info("stock adjusted",
		zap.String("namespace", "inventory"),
		zap.Int64("product_id", product.ID),
		zap.String("type", string(m.Type)),
		zap.Int("delta", m.Quantity),
		zap.Int("previous_stock", previous),
		zap.Int("new_stock", next))
	return entry, nil
}

// StockIn adds quantity units. Type defaults to stockIn.
func (l *Ledger) StockIn(ctx context.Context, m Movement) (*domain.InventoryLog, error) {
	if m.Quantity <= 0 {
		return nil, &domain.InvalidArgumentError{Field: "quantity", Message: "must be positive"}
	}
	if m.Type == "" {
		m.Type = domain.MovementStockIn
	}
	if m.Type.IsDebit() {
		return nil, &domain.InvalidArgumentError{Field: "type", Message: string(m.Type) + " cannot add stock"}
	}
	return l.AdjustStock(ctx, m)
}

// StockOut removes quantity units after checking availability, so callers get
// an insufficient stock error naming the product. Type defaults to stockOut.
func (l *Ledger) StockOut(ctx context.Context, m Movement) (*domain.InventoryLog, error) {
	if m.Quantity <= 0 {
		return nil, &domain.InvalidArgumentError{Field: "quantity", Message: "must be positive"}
	}
	if m.Type == "" {
		m.Type = domain.MovementStockOut
	}
	if !m.Type.IsDebit() {
		return nil, &domain.InvalidArgumentError{Field: "type", Message: string(m.Type) + " cannot remove stock"}
	}

	var product domain.Product
	err := l.db.WithContext(ctx).Select("id", "name", "stock").First(&product, m.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "product", ID: m.ProductID}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load product %d", m.ProductID)
	}
	if !product.HasStock(m.Quantity) {
		return nil, &domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   m.Quantity,
		}
	}

	m.Quantity = -m.Quantity
	return l.AdjustStock(ctx, m)
}

// CheckLowStock lists products at or below their minimum stock, inactive ones excluded.
func (l *Ledger) CheckLowStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := l.db.WithContext(ctx).
		Where("stock <= min_stock AND status <> ?", domain.ProductInactive).
		Order("stock ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "query low stock products")
	}
	return products, nil
}

// History returns a product's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, productID int64, limit int) ([]domain.InventoryLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []domain.InventoryLog
	err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "query inventory log of product %d", productID)
	}
	return logs, nil
}

// AlertLowStock publishes one low stock event per product returned by
// CheckLowStock and reports how many were published.
func (l *Ledger) AlertLowStock(ctx context.Context, pub domain.Publisher) (int, error) {
	products, err := l.CheckLowStock(ctx)
	if err != nil {
		return 0, err
	}
	for i := range products {
		pub.Publish(domain.TopicLowStock, products[i])
	}
	return len(products), nil
}
