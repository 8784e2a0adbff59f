package inventory

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog manages categories and products. Product stock is never written
// here; initial stock is booked through the ledger.
type Catalog struct {
	db     *gorm.DB
	ledger *Ledger
}

func NewCatalog(db *gorm.DB, ledger *Ledger) *Catalog {
	return &Catalog{db: db, ledger: ledger}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	CategoryID  int64
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	MinStock    int
	Status      domain.ProductStatus
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &domain.InvalidArgumentError{Field: "name", Message: "is required"}
	}
	if in.Price.IsNegative() {
		return &domain.InvalidArgumentError{Field: "price", Message: "must not be negative"}
	}
	if in.MinStock < 0 {
		return &domain.InvalidArgumentError{Field: "min_stock", Message: "must not be negative"}
	}
	switch in.Status {
	case "", domain.ProductActive, domain.ProductInactive:
	default:
		return &domain.InvalidArgumentError{Field: "status", Message: "must be active or inactive"}
	}
	return nil
}

// CreateProduct inserts a product with zero stock and books initialStock as
// a stockIn movement in the same transaction.
func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput, initialStock int, actorID *int64) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if initialStock < 0 {
		return nil, &domain.InvalidArgumentError{Field: "stock", Message: "must not be negative"}
	}
	p := &domain.Product{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       money.Round(in.Price),
		Image:       in.Image,
		MinStock:    in.MinStock,
		Status:      domain.ProductOutOfStock,
	}
	if in.Status == domain.ProductInactive {
		p.Status = domain.ProductInactive
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryID != 0 {
			if err := tx.Take(&domain.Category{}, in.CategoryID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &domain.NotFoundError{Entity: "category", ID: in.CategoryID}
				}
				return err
			}
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if initialStock == 0 {
			return nil
		}
		_, err := c.ledger.WithTx(tx).StockIn(ctx, Movement{
			ProductID: p.ID,
			Quantity:  initialStock,
			ActorID:   actorID,
			Reason:    "initial stock",
		})
		if err != nil {
			return err
		}
		return tx.Take(p, p.ID).Error
	})
	if err != nil {
		return nil, wrapStorage(err, "create product %q", in.Name)
	}
	zap.L().Info("product created",
		zap.String("namespace", "inventory"),
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("stock", p.Stock))
	return p, nil
}

// UpdateProduct rewrites the editable fields. An outOfStock product keeps
// its derived status unless it is being deactivated.
func (c *Catalog) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p domain.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takeProduct(tx, id, &p); err != nil {
			return err
		}
		status := p.Status
		switch {
		case in.Status == domain.ProductInactive:
			status = domain.ProductInactive
		case in.Status == domain.ProductActive && p.Status == domain.ProductInactive:
			status = domain.ProductActive
			if p.Stock == 0 {
				status = domain.ProductOutOfStock
			}
		}
		return tx.Model(&p).Updates(map[string]interface{}{
			"category_id": in.CategoryID,
			"name":        strings.TrimSpace(in.Name),
			"description": in.Description,
			"price":       money.Round(in.Price),
			"image":       in.Image,
			"min_stock":   in.MinStock,
			"status":      status,
		}).Error
	})
	if err != nil {
		return nil, wrapStorage(err, "update product %d", id)
	}
	return c.Product(ctx, id)
}

// DeleteProduct removes a product. Ledger rows and order lines keep their
// copies; cart lines pointing at it are dropped.
func (c *Catalog) DeleteProduct(ctx context.Context, id int64) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := takeProduct(tx, id, &p); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	return wrapStorage(err, "delete product %d", id)
}

func (c *Catalog) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := takeProduct(c.db.WithContext(ctx), id, &p); err != nil {
		return nil, wrapStorage(err, "load product %d", id)
	}
	return &p, nil
}

// ProductQuery filters product listings.
type ProductQuery struct {
	CategoryID int64
	Status     domain.ProductStatus
	Orderable  bool // hide inactive products
	Keyword    string
	Offset     int
	Limit      int
}

// Products lists products and the total count matching q.
func (c *Catalog) Products(ctx context.Context, q ProductQuery) ([]domain.Product, int64, error) {
	query := c.db.WithContext(ctx).Model(&domain.Product{})
	if q.CategoryID != 0 {
		query = query.Where("category_id = ?", q.CategoryID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Orderable {
		query = query.Where("status <> ?", domain.ProductInactive)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}
	var products []domain.Product
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}
	if err := query.Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return products, total, nil
}

// SaveCategory creates a category when ID is zero and updates it otherwise.
func (c *Catalog) SaveCategory(ctx context.Context, cat *domain.Category) error {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return &domain.InvalidArgumentError{Field: "name", Message: "is required"}
	}
	db := c.db.WithContext(ctx)
	if cat.ID == 0 {
		return errors.Wrapf(db.Create(cat).Error, "create category %q", cat.Name)
	}
	res := db.Model(&domain.Category{}).Where("id = ?", cat.ID).Updates(map[string]interface{}{
		"name":        cat.Name,
		"description": cat.Description,
	})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update category %d", cat.ID)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "category", ID: cat.ID}
	}
	return nil
}

// DeleteCategory removes an empty category.
func (c *Catalog) DeleteCategory(ctx context.Context, id int64) error {
	var n int64
	db := c.db.WithContext(ctx)
	if err := db.Model(&domain.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return errors.Wrap(err, "count category products")
	}
	if n > 0 {
		return &domain.InvalidArgumentError{Field: "category", Message: "category still has products"}
	}
	res := db.Delete(&domain.Category{}, id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete category %d", id)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func (c *Catalog) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := c.db.WithContext(ctx).Order("name ASC").Find(&cats).Error
	return cats, errors.Wrap(err, "list categories")
}

func takeProduct(db *gorm.DB, id int64, p *domain.Product) error {
	err := db.Take(p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.NotFoundError{Entity: "product", ID: id}
	}
	return err
}

func wrapStorage(err error, format string, args ...interface{}) error {
	if err == nil || domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return errors.Wrapf(err, format, args...)
}
