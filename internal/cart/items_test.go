package cart

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/internal/domain"
)

func TestAddItemMergesQuantity(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Gordita", "22.50", 10)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)

	first, err := items.AddItem(ctx, c.ID, p.ID, 2, strp("sin cebolla"))
	require.NoError(t, err)
	second, err := items.AddItem(ctx, c.ID, p.ID, 3, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	require.NotNil(t, second.SpecialInstructions)
	assert.Equal(t, "sin cebolla", *second.SpecialInstructions)
	assert.EqualValues(t, 1, env.Count(t, &domain.CartItem{}, "cart_id = ?", c.ID))

	third, err := items.AddItem(ctx, c.ID, p.ID, 1, strp("extra salsa"))
	require.NoError(t, err)
	assert.Equal(t, 6, third.Quantity)
	assert.Equal(t, "extra salsa", *third.SpecialInstructions)
	assert.Equal(t, 10, env.Reload(t, p.ID).Stock, "cart membership never reserves stock")
}

func TestAddItemRefreshesPriceSnapshot(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Huarache", "40.00", 10)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)

	_, err = items.AddItem(ctx, c.ID, p.ID, 1, nil)
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(p).Update("price", "44.00").Error)
	item, err := items.AddItem(ctx, c.ID, p.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "44.00", item.UnitPrice.StringFixed(2))
}

func TestAddItemBeyondStock(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Pambazo", "35.00", 2)
	c, err := resolver.GetOrCreateCart(ctx, domain.SessionOwner("guest"))
	require.NoError(t, err)

	item, err := items.AddItem(ctx, c.ID, p.ID, 2, nil)
	require.NoError(t, err)

	_, err = items.AddItem(ctx, c.ID, p.ID, 1, nil)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, "Pambazo", insufficient.ProductName)

	var kept domain.CartItem
	require.NoError(t, env.DB.Take(&kept, item.ID).Error)
	assert.Equal(t, 2, kept.Quantity)

	_, err = items.AddItem(ctx, c.ID, env.Product(t, "Agotado", "10.00", 0).ID, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientStock))
}

func TestAddItemValidation(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Sopa", "30.00", 3)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)

	_, err = items.AddItem(ctx, c.ID, p.ID, 0, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = items.AddItem(ctx, c.ID, 999, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = items.AddItem(ctx, 999, p.ID, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	require.NoError(t, env.DB.Model(p).Update("status", domain.ProductInactive).Error)
	_, err = items.AddItem(ctx, c.ID, p.ID, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
}

func TestAddItemRenewsExpiry(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Elote", "18.00", 5)
	c, err := resolver.GetOrCreateCart(ctx, domain.SessionOwner("guest"))
	require.NoError(t, err)

	env.Clock.Advance(10 * time.Minute)
	_, err = items.AddItem(ctx, c.ID, p.ID, 1, nil)
	require.NoError(t, err)

	var reloaded domain.Cart
	require.NoError(t, env.DB.Take(&reloaded, c.ID).Error)
	assert.WithinDuration(t, env.Clock.Now().Add(testTTL.Guest), *reloaded.ExpiresAt, 0)
}

func TestUpdateItemUsesAbsoluteQuantity(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Tostada", "16.00", 4)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)
	item, err := items.AddItem(ctx, c.ID, p.ID, 3, strp("bien dorada"))
	require.NoError(t, err)

	updated, err := items.UpdateItem(ctx, c.ID, item.ID, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.Nil(t, updated.SpecialInstructions)

	_, err = items.UpdateItem(ctx, c.ID, item.ID, 5, nil)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientStock))

	other, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(2))
	require.NoError(t, err)
	_, err = items.UpdateItem(ctx, other.ID, item.ID, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRemoveAndClear(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	a := env.Product(t, "Agua de jamaica", "15.00", 10)
	b := env.Product(t, "Horchata", "15.00", 10)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)

	first, err := items.AddItem(ctx, c.ID, a.ID, 1, nil)
	require.NoError(t, err)
	_, err = items.AddItem(ctx, c.ID, b.ID, 2, nil)
	require.NoError(t, err)

	require.NoError(t, items.RemoveItem(ctx, c.ID, first.ID))
	assert.True(t, domain.IsKind(items.RemoveItem(ctx, c.ID, first.ID), domain.KindNotFound))
	assert.EqualValues(t, 1, env.Count(t, &domain.CartItem{}, "cart_id = ?", c.ID))

	require.NoError(t, items.ClearCart(ctx, c.ID))
	assert.EqualValues(t, 0, env.Count(t, &domain.CartItem{}, "cart_id = ?", c.ID))
	var reloaded domain.Cart
	require.NoError(t, env.DB.Take(&reloaded, c.ID).Error)
	assert.Equal(t, domain.CartActive, reloaded.Status)
	assert.Equal(t, 10, env.Reload(t, a.ID).Stock)
}

func TestDetails(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	a := env.Product(t, "Cafe de olla", "19.90", 10)
	b := env.Product(t, "Concha", "12.35", 10)
	c, err := resolver.GetOrCreateCart(ctx, domain.UserOwner(1))
	require.NoError(t, err)
	_, err = items.AddItem(ctx, c.ID, a.ID, 2, nil)
	require.NoError(t, err)
	_, err = items.AddItem(ctx, c.ID, b.ID, 3, nil)
	require.NoError(t, err)

	d, err := items.Details(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, d.Items, 2)
	assert.Equal(t, 5, d.ItemCount)
	assert.Equal(t, "76.85", d.Subtotal.StringFixed(2))
	require.NotNil(t, d.Items[0].Product)
	assert.Equal(t, "Cafe de olla", d.Items[0].Product.Name)
}

func TestItemsRejectInactiveCart(t *testing.T) {
	env, resolver, items := newCarts(t)
	ctx := context.Background()
	p := env.Product(t, "Pastel", "30.00", 10)
	c, err := resolver.GetOrCreateCart(ctx, domain.SessionOwner("gone"))
	require.NoError(t, err)
	env.Clock.Advance(time.Hour)
	_, err = resolver.CleanExpiredCarts(ctx, 30)
	require.NoError(t, err)

	_, err = items.AddItem(ctx, c.ID, p.ID, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindOwnershipMismatch))
}
