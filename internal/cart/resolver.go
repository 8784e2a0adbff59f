package cart

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TTL is the idle lifetime of a cart per owner kind. A non-positive TTL
// leaves expiresAt unset.
type TTL struct {
	Guest time.Duration
	User  time.Duration
}

// Resolver maps an owner to its single active cart and reaps stale carts.
type Resolver struct {
	db    *gorm.DB
	clock common.Clock
	ttl   TTL
}

func NewResolver(db *gorm.DB, clock common.Clock, ttl TTL) *Resolver {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Resolver{db: db, clock: clock, ttl: ttl}
}

func (r *Resolver) expiry(owner domain.Owner) *time.Time {
	ttl := r.ttl.Guest
	if owner.IsUser() {
		ttl = r.ttl.User
	}
	if ttl <= 0 {
		return nil
	}
	at := r.clock.Now().Add(ttl)
	return &at
}

// touch renews the expiry of an active cart inside tx. A cart that left
// the active state since it was loaded yields a ConcurrencyConflictError.
func (r *Resolver) touch(tx *gorm.DB, c *domain.Cart) error {
	expiresAt := r.expiry(c.Owner())
	now := r.clock.Now()
	res := tx.Model(&domain.Cart{}).
		Where("id = ? AND status = ?", c.ID, domain.CartActive).
		Updates(map[string]interface{}{
			"expires_at": expiresAt,
			"updated_at": now,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "renew cart %d", c.ID)
	}
	if res.RowsAffected == 0 {
		return &domain.ConcurrencyConflictError{Entity: "cart"}
	}
	c.ExpiresAt = expiresAt
	c.UpdatedAt = now
	return nil
}

func findActive(tx *gorm.DB, owner domain.Owner) (*domain.Cart, error) {
	var c domain.Cart
	err := tx.Where("active_key = ?", owner.Key()).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find cart of %s", owner)
	}
	return &c, nil
}

// GetOrCreateCart returns the owner's active cart, creating it on first
// access. An expired cart is revived with a fresh expiry and keeps its
// items; a live cart is returned without writes.
func (r *Resolver) GetOrCreateCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if !owner.Valid() {
		return nil, &domain.InvalidArgumentError{Field: "owner", Message: "user id or session token required"}
	}
	db := r.db.WithContext(ctx)

	c, err := findActive(db, owner)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if !c.IsExpired(r.clock.Now()) {
			return c, nil
		}
		err = r.touch(db, c)
		if err == nil {
			zap.L().Debug("cart revived",
				zap.String("namespace", "cart"),
				zap.Int64("cart_id", c.ID),
				zap.String("owner", owner.Key()))
			return c, nil
		}
		// Converted or abandoned after the lookup: start a new cart.
		if !domain.IsKind(err, domain.KindConcurrencyConflict) {
			return nil, err
		}
	}

	return r.create(db, owner)
}

// create inserts a fresh active cart for owner. When the active key is
// already taken the cart holding it is returned instead.
func (r *Resolver) create(db *gorm.DB, owner domain.Owner) (*domain.Cart, error) {
	c := domain.NewCart(owner, r.expiry(owner))
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "create cart of %s", owner)
	}
	if res.RowsAffected == 1 {
		zap.L().Info("cart created",
			zap.String("namespace", "cart"),
			zap.Int64("cart_id", c.ID),
			zap.String("owner", owner.Key()))
		return c, nil
	}

	// Another request created the cart between our lookup and insert.
	c, err := findActive(db, owner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &domain.ConcurrencyConflictError{Entity: "cart"}
	}
	return c, nil
}

// Owned loads a cart and checks it belongs to owner.
func (r *Resolver) Owned(ctx context.Context, cartID int64, owner domain.Owner) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.WithContext(ctx).Take(&c, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "cart", ID: cartID}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load cart %d", cartID)
	}
	if c.Owner().Key() != owner.Key() {
		return nil, &domain.OwnershipMismatchError{Entity: "cart", ID: cartID}
	}
	return &c, nil
}

// CleanExpiredCarts abandons active carts whose expiry has passed, or that
// have no expiry and were created more than staleMinutes ago. Their items are
// deleted. Returns the number of carts abandoned; a second run with no
// activity in between returns 0.
func (r *Resolver) CleanExpiredCarts(ctx context.Context, staleMinutes int) (int, error) {
	now := r.clock.Now()
	staleBefore := now.Add(-time.Duration(staleMinutes) * time.Minute)
	db := r.db.WithContext(ctx)

	var ids []int64
	err := db.Model(&domain.Cart{}).
		Where("status = ?", domain.CartActive).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR (expires_at IS NULL AND created_at < ?)", now, staleBefore).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, errors.Wrap(err, "query expired carts")
	}

	count := 0
	for _, id := range ids {
		reaped := false
		err := db.Transaction(func(tx *gorm.DB) error {
			var c domain.Cart
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&c, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			// Re-check under the lock: the owner may have revived it since.
			if !c.IsActive() {
				return nil
			}
			if c.ExpiresAt != nil && !c.IsExpired(now) {
				return nil
			}
			if c.ExpiresAt == nil && !c.CreatedAt.Before(staleBefore) {
				return nil
			}
			if err := tx.Where("cart_id = ?", c.ID).Delete(&domain.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Cart{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
				"status":     domain.CartAbandoned,
				"active_key": nil,
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
			reaped = true
			return nil
		})
		if err != nil {
			return count, errors.Wrapf(err, "abandon cart %d", id)
		}
		if reaped {
			count++
		}
	}
	if count > 0 {
		zap.L().Info("expired carts abandoned",
			zap.String("namespace", "cart"),
			zap.Int("count", count))
	}
	return count, nil
}

// DeleteOldAbandonedCarts hard-deletes abandoned carts last updated more than
// daysOld days ago.
func (r *Resolver) DeleteOldAbandonedCarts(ctx context.Context, daysOld int) (int, error) {
	before := r.clock.Now().AddDate(0, 0, -daysOld)
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		err := tx.Model(&domain.Cart{}).
			Where("status = ? AND updated_at < ?", domain.CartAbandoned, before).
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return err
		}
		if err := tx.Where("cart_id IN ?", ids).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&domain.Cart{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete abandoned carts")
	}
	if deleted > 0 {
		zap.L().Info("abandoned carts deleted",
			zap.String("namespace", "cart"),
			zap.Int64("count", deleted),
			zap.Int("days_old", daysOld))
	}
	return int(deleted), nil
}
