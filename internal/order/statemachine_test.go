package order

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/internal/domain"
)

func TestOrderLifecycleToCompleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.Product(t, "Torta cubana", "65.00", 4)
	o, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 1, p, 1).ID, nil, nil)
	require.NoError(t, err)

	for _, next := range []domain.OrderStatus{
		domain.OrderConfirmed, domain.OrderPreparing, domain.OrderReady,
	} {
		updated, err := f.machine.UpdateOrderStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
		assert.Nil(t, updated.CompletedAt)
	}
	f.Clock.Advance(5 * time.Minute)
	done, err := f.machine.UpdateOrderStatus(ctx, o.ID, domain.OrderCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.WithinDuration(t, f.Clock.Now(), *done.CompletedAt, 0)
	assert.Nil(t, done.CancelledAt)
	assert.Equal(t, 3, f.Reload(t, p.ID).Stock, "confirmation never debits again")

	_, err = f.machine.UpdateOrderStatus(ctx, o.ID, domain.OrderCancelled)
	var invalid *domain.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, domain.OrderCompleted, invalid.From)
	assert.Equal(t, domain.OrderCancelled, invalid.To)
	assert.Equal(t, o.OrderNumber, invalid.OrderNumber)
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		path []domain.OrderStatus
		to   domain.OrderStatus
	}{
		{nil, domain.OrderReady},
		{nil, domain.OrderCompleted},
		{nil, domain.OrderPending},
		{[]domain.OrderStatus{domain.OrderConfirmed}, domain.OrderConfirmed},
		{[]domain.OrderStatus{domain.OrderConfirmed, domain.OrderPreparing, domain.OrderReady}, domain.OrderCancelled},
		{[]domain.OrderStatus{domain.OrderCancelled}, domain.OrderConfirmed},
	}
	for _, tc := range cases {
		t.Run(string(tc.to), func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			p := f.Product(t, "Licuado", "28.00", 4)
			o, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 1, p, 1).ID, nil, nil)
			require.NoError(t, err)
			for _, step := range tc.path {
				_, err := f.machine.UpdateOrderStatus(ctx, o.ID, step)
				require.NoError(t, err)
			}
			before, err := f.assembler.Get(ctx, o.ID)
			require.NoError(t, err)

			_, err = f.machine.UpdateOrderStatus(ctx, o.ID, tc.to)
			assert.True(t, domain.IsKind(err, domain.KindInvalidTransition), "got %v", err)

			after, err := f.assembler.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Status, after.Status)
		})
	}
}

func TestUnknownStatusAndOrder(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.machine.UpdateOrderStatus(context.Background(), 1, "shipped")
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = f.machine.UpdateOrderStatus(context.Background(), 1, domain.OrderConfirmed)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.Product(t, "Chilaquiles", "45.00", 6)
	b := f.Product(t, "Jugo verde", "30.00", 3)
	o, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 1, a, 2, b, 3).ID, nil, strp("cash"))
	require.NoError(t, err)
	assert.Equal(t, 4, f.Reload(t, a.ID).Stock)
	assert.Equal(t, 0, f.Reload(t, b.ID).Stock)
	assert.Equal(t, domain.ProductOutOfStock, f.Reload(t, b.ID).Status)

	_, err = f.machine.UpdateOrderStatus(ctx, o.ID, domain.OrderConfirmed)
	require.NoError(t, err)
	f.Clock.Advance(time.Minute)
	cancelled, err := f.machine.UpdateOrderStatus(ctx, o.ID, domain.OrderCancelled)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.WithinDuration(t, f.Clock.Now(), *cancelled.CancelledAt, 0)
	assert.Equal(t, domain.PaymentRefunded, cancelled.PaymentStatus)

	assert.Equal(t, 6, f.Reload(t, a.ID).Stock)
	assert.Equal(t, 3, f.Reload(t, b.ID).Stock)
	assert.Equal(t, domain.ProductActive, f.Reload(t, b.ID).Status)

	for _, p := range []struct {
		id  int64
		qty int
	}{{a.ID, 2}, {b.ID, 3}} {
		logs := f.Logs(t, p.id)
		require.Len(t, logs, 2)
		restore := logs[1]
		assert.Equal(t, domain.MovementStockIn, restore.Type)
		assert.Equal(t, p.qty, restore.Quantity)
		assert.Equal(t, "order cancelled #"+o.OrderNumber, restore.Reason)
		ref, ok := restore.Reference().OrderID()
		assert.True(t, ok)
		assert.Equal(t, o.ID, ref)
	}

	require.Len(t, f.pub.events, 3)
	change := f.pub.events[2].(domain.OrderStatusChanged)
	assert.Equal(t, domain.OrderConfirmed, change.From)
	assert.Equal(t, domain.OrderCancelled, change.To)
}

func TestCancelSkipsDeletedProducts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	kept := f.Product(t, "Quesadilla", "28.00", 5)
	gone := f.Product(t, "Temporada", "35.00", 5)
	o, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 1, kept, 1, gone, 2).ID, nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.DB.Delete(&domain.Product{}, gone.ID).Error)

	cancelled, err := f.machine.UpdateOrderStatus(ctx, o.ID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	assert.Equal(t, domain.PaymentPending, cancelled.PaymentStatus)
	assert.Equal(t, 5, f.Reload(t, kept.ID).Stock)
	assert.Len(t, f.Logs(t, gone.ID), 1)
	require.Len(t, cancelled.Items, 2, "order lines outlive their products")
}

func TestCancelPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.Product(t, "Molletes", "32.00", 4)

	open, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 1, p, 1).ID, nil, nil)
	require.NoError(t, err)
	cancelled, err := f.machine.CancelPending(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	assert.Equal(t, 4, f.Reload(t, p.ID).Stock)

	confirmed, err := f.assembler.CreateOrderFromCart(ctx, f.cartWith(t, 2, p, 2).ID, nil, nil)
	require.NoError(t, err)
	_, err = f.machine.UpdateOrderStatus(ctx, confirmed.ID, domain.OrderConfirmed)
	require.NoError(t, err)

	_, err = f.machine.CancelPending(ctx, confirmed.ID)
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition), "got %v", err)
	var terr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.OrderConfirmed, terr.From)
	assert.Equal(t, domain.OrderCancelled, terr.To)

	stored, err := f.assembler.Get(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, stored.Status)
	assert.Nil(t, stored.CancelledAt)
	assert.Equal(t, 2, f.Reload(t, p.ID).Stock)

	_, err = f.machine.CancelPending(ctx, 999)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
