package cart

import (
	"context"

	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func lockCart(tx *gorm.DB, id int64) (*domain.Cart, error) {
	var c domain.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "cart", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lock cart %d", id)
	}
	return &c, nil
}

// MergeCarts folds an anonymous session cart into a user cart atomically.
// Lines for products already in the user cart are summed when stock covers
// the total and otherwise keep the user quantity. Other lines move over.
// The session cart ends empty and converted.
func (r *Resolver) MergeCarts(ctx context.Context, sessionCartID, userCartID int64) (*domain.Cart, error) {
	if sessionCartID == userCartID {
		return nil, &domain.InvalidArgumentError{Field: "cart", Message: "cannot merge a cart into itself"}
	}
	var merged *domain.Cart
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock in id order so two merges touching the same carts cannot deadlock.
		first, second := sessionCartID, userCartID
		if first > second {
			first, second = second, first
		}
		locked := make(map[int64]*domain.Cart, 2)
		for _, id := range []int64{first, second} {
			c, err := lockCart(tx, id)
			if err != nil {
				return err
			}
			locked[id] = c
		}
		sessionCart, userCart := locked[sessionCartID], locked[userCartID]
		if !sessionCart.Owner().IsSession() || !userCart.Owner().IsUser() {
			return &domain.OwnershipMismatchError{Entity: "cart", ID: sessionCartID,
				Reason: "merge needs a session cart and a user cart"}
		}
		if !sessionCart.IsActive() || !userCart.IsActive() {
			return &domain.InvalidArgumentError{Field: "cart", Message: "both carts must be active"}
		}

		var sessionItems, userItems []domain.CartItem
		if err := tx.Where("cart_id = ?", sessionCartID).Order("created_at, id").Find(&sessionItems).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", userCartID).Find(&userItems).Error; err != nil {
			return err
		}
		existing := make(map[int64]*domain.CartItem, len(userItems))
		for i := range userItems {
			existing[userItems[i].ProductID] = &userItems[i]
		}

		for _, item := range sessionItems {
			var product domain.Product
			err := tx.Take(&product, item.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			target, ok := existing[item.ProductID]
			if !ok {
				err := tx.Model(&domain.CartItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
					"cart_id":    userCartID,
					"unit_price": product.Price,
					"updated_at": r.clock.Now(),
				}).Error
				if err != nil {
					return err
				}
				continue
			}

			combined := target.Quantity + item.Quantity
			if !product.HasStock(combined) {
				zap.L().Debug("merge line skipped, stock exceeded",
					zap.String("namespace", "cart"),
					zap.Int64("product_id", product.ID),
					zap.Int("combined", combined),
					zap.Int("stock", product.Stock))
				continue
			}
			updates := map[string]interface{}{
				"quantity":   combined,
				"unit_price": product.Price,
				"updated_at": r.clock.Now(),
			}
			if item.SpecialInstructions != nil {
				updates["special_instructions"] = item.SpecialInstructions
			}
			if err := tx.Model(&domain.CartItem{}).Where("id = ?", target.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", sessionCartID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Cart{}).Where("id = ?", sessionCartID).Updates(map[string]interface{}{
			"status":     domain.CartConverted,
			"active_key": nil,
			"updated_at": r.clock.Now(),
		}).Error; err != nil {
			return err
		}
		if err := r.touch(tx, userCart); err != nil {
			return err
		}

		if err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at, id")
		}).Take(userCart, userCartID).Error; err != nil {
			return err
		}
		merged = userCart
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr(err, "merge cart %d into %d", sessionCartID, userCartID)
	}
	zap.L().Info("carts merged",
		zap.String("namespace", "cart"),
		zap.Int64("session_cart_id", sessionCartID),
		zap.Int64("user_cart_id", userCartID))
	return merged, nil
}

// MergeOnLogin moves the guest cart of sessionToken into the cart of userID.
// It returns nil without writing when the guest has no active cart.
func (r *Resolver) MergeOnLogin(ctx context.Context, sessionToken string, userID int64) (*domain.Cart, error) {
	guest := domain.SessionOwner(sessionToken)
	user := domain.UserOwner(userID)
	if !guest.Valid() || !user.Valid() {
		return nil, &domain.InvalidArgumentError{Field: "owner", Message: "session token and user id required"}
	}
	sessionCart, err := findActive(r.db.WithContext(ctx), guest)
	if err != nil || sessionCart == nil {
		return nil, err
	}
	userCart, err := r.GetOrCreateCart(ctx, user)
	if err != nil {
		return nil, err
	}
	return r.MergeCarts(ctx, sessionCart.ID, userCart.ID)
}
