package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/internal/domain"
)

func TestCreateProductBooksInitialStock(t *testing.T) {
	env, ledger := newLedger(t)
	catalog := NewCatalog(env.DB, ledger)
	ctx := context.Background()

	cat := &domain.Category{Name: "Desayunos"}
	require.NoError(t, catalog.SaveCategory(ctx, cat))
	admin := int64(1)

	p, err := catalog.CreateProduct(ctx, ProductInput{
		CategoryID: cat.ID,
		Name:       " Chilaquiles ",
		Price:      decimal.RequireFromString("45.5"),
		MinStock:   3,
	}, 12, &admin)
	require.NoError(t, err)
	assert.Equal(t, "Chilaquiles", p.Name)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, domain.ProductActive, p.Status)
	assert.Equal(t, "45.50", p.Price.StringFixed(2))

	logs := env.Logs(t, p.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.MovementStockIn, logs[0].Type)
	assert.Equal(t, 0, logs[0].PreviousStock)
	assert.Equal(t, 12, logs[0].NewStock)
	assert.Equal(t, "initial stock", logs[0].Reason)
	assert.Equal(t, admin, *logs[0].ActorID)

	empty, err := catalog.CreateProduct(ctx, ProductInput{Name: "Pozole", Price: decimal.NewFromInt(60)}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductOutOfStock, empty.Status)
	assert.Empty(t, env.Logs(t, empty.ID))
}

func TestCreateProductValidation(t *testing.T) {
	env, ledger := newLedger(t)
	catalog := NewCatalog(env.DB, ledger)
	ctx := context.Background()

	_, err := catalog.CreateProduct(ctx, ProductInput{Name: " ", Price: decimal.NewFromInt(1)}, 0, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = catalog.CreateProduct(ctx, ProductInput{Name: "X", Price: decimal.NewFromInt(-1)}, 0, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = catalog.CreateProduct(ctx, ProductInput{Name: "X", Price: decimal.NewFromInt(1)}, -2, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = catalog.CreateProduct(ctx, ProductInput{Name: "X", Price: decimal.NewFromInt(1), Status: domain.ProductOutOfStock}, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))
	_, err = catalog.CreateProduct(ctx, ProductInput{Name: "X", Price: decimal.NewFromInt(1), CategoryID: 77}, 1, nil)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.EqualValues(t, 0, env.Count(t, &domain.Product{}, ""))
}

func TestUpdateProductNeverTouchesStock(t *testing.T) {
	env, ledger := newLedger(t)
	catalog := NewCatalog(env.DB, ledger)
	ctx := context.Background()
	p := env.Product(t, "Torta", "38.00", 0)

	updated, err := catalog.UpdateProduct(ctx, p.ID, ProductInput{Name: "Torta ahogada", Price: decimal.RequireFromString("42.00"), Status: domain.ProductActive})
	require.NoError(t, err)
	assert.Equal(t, "Torta ahogada", updated.Name)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, domain.ProductOutOfStock, updated.Status)

	updated, err = catalog.UpdateProduct(ctx, p.ID, ProductInput{Name: "Torta ahogada", Price: decimal.RequireFromString("42.00"), Status: domain.ProductInactive})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductInactive, updated.Status)

	updated, err = catalog.UpdateProduct(ctx, p.ID, ProductInput{Name: "Torta ahogada", Price: decimal.RequireFromString("42.00"), Status: domain.ProductActive})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductOutOfStock, updated.Status)

	_, err = catalog.UpdateProduct(ctx, 999, ProductInput{Name: "Nada", Price: decimal.NewFromInt(1)})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestProductsQuery(t *testing.T) {
	env, ledger := newLedger(t)
	catalog := NewCatalog(env.DB, ledger)
	ctx := context.Background()
	env.Product(t, "Cafe americano", "18.00", 5)
	env.Product(t, "Cafe de olla", "20.00", 0)
	jugo := env.Product(t, "Jugo", "25.00", 5)

	products, total, err := catalog.Products(ctx, ProductQuery{Keyword: "CAFE"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, products, 2)

	products, total, err = catalog.Products(ctx, ProductQuery{Status: domain.ProductActive, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Cafe americano", products[0].Name)

	_, err = catalog.UpdateProduct(ctx, jugo.ID, ProductInput{Name: "Jugo", Price: decimal.RequireFromString("25.00"), Status: domain.ProductInactive})
	require.NoError(t, err)
	products, total, err = catalog.Products(ctx, ProductQuery{Orderable: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, p := range products {
		assert.NotEqual(t, "Jugo", p.Name)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	env, ledger := newLedger(t)
	catalog := NewCatalog(env.DB, ledger)
	ctx := context.Background()

	cat := &domain.Category{Name: "Bebidas"}
	require.NoError(t, catalog.SaveCategory(ctx, cat))
	cat.Description = "Frias y calientes"
	require.NoError(t, catalog.SaveCategory(ctx, cat))

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Frias y calientes", cats[0].Description)

	p, err := catalog.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Agua", Price: decimal.NewFromInt(12)}, 1, nil)
	require.NoError(t, err)
	assert.True(t, domain.IsKind(catalog.DeleteCategory(ctx, cat.ID), domain.KindInvalidArgument))

	require.NoError(t, catalog.DeleteProduct(ctx, p.ID))
	assert.True(t, domain.IsKind(catalog.DeleteProduct(ctx, p.ID), domain.KindNotFound))
	require.NoError(t, catalog.DeleteCategory(ctx, cat.ID))
	assert.True(t, domain.IsKind(catalog.DeleteCategory(ctx, cat.ID), domain.KindNotFound))
	assert.Len(t, env.Logs(t, p.ID), 1, "ledger rows outlive the product")

	missing := &domain.Category{ID: 5, Name: "Nada"}
	assert.True(t, domain.IsKind(catalog.SaveCategory(ctx, missing), domain.KindNotFound))
}
