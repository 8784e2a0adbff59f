package app

import (
	"context"

	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/pkg/money"
	"go.uber.org/zap"
)

type seedProduct struct {
	category    string
	name        string
	description string
	price       string
	stock       int
	minStock    int
}

var defaultCategories = []domain.Category{
	{Name: "Desayunos", Description: "Served until noon"},
	{Name: "Comida corrida", Description: "Daily set menu"},
	{Name: "Bebidas", Description: "Hot and cold drinks"},
	{Name: "Postres", Description: "Desserts and bakery"},
}

var defaultProducts = []seedProduct{
	{"Desayunos", "Chilaquiles verdes", "Tortilla chips in green salsa with cream and cheese", "45.00", 40, 5},
	{"Desayunos", "Molletes", "Bolillo with beans and melted cheese", "32.00", 30, 5},
	{"Comida corrida", "Menu del dia", "Soup, rice, main dish and agua fresca", "70.00", 120, 10},
	{"Comida corrida", "Enchiladas suizas", "Chicken enchiladas in creamy green sauce", "58.00", 35, 5},
	{"Bebidas", "Cafe americano", "12 oz", "18.00", 200, 20},
	{"Bebidas", "Agua de jamaica", "16 oz", "15.00", 80, 10},
	{"Postres", "Flan napolitano", "Slice", "25.00", 20, 4},
	{"Postres", "Concha", "Sweet bread", "12.00", 50, 10},
}

// checkCategories creates the default menu categories that do not exist yet.
func (a *Application) checkCategories() {
	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&count)
		if count > 0 {
			continue
		}
		c := c
		if err := a.catalog.SaveCategory(context.Background(), &c); err != nil {
			zap.L().Error("failed to create default category", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		zap.L().Info("initialized default category", zap.String("name", c.Name))
	}
}

// checkProducts creates the default menu through the catalog so the opening
// stock is recorded in the inventory log.
func (a *Application) checkProducts() {
	categories := map[string]int64{}
	var cats []domain.Category
	a.gormDB.Find(&cats)
	for _, c := range cats {
		categories[c.Name] = c.ID
	}

	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("name = ?", p.name).Count(&count)
		if count > 0 {
			continue
		}
		_, err := a.catalog.CreateProduct(context.Background(), inventory.ProductInput{
			CategoryID:  categories[p.category],
			Name:        p.name,
			Description: p.description,
			Price:       money.MustParse(p.price),
			MinStock:    p.minStock,
		}, p.stock, nil)
		if err != nil {
			zap.L().Error("failed to create default product", zap.String("name", p.name), zap.Error(err))
			continue
		}
		zap.L().Info("initialized default product", zap.String("name", p.name), zap.Int("stock", p.stock))
	}
}

// SeedData loads the default categories and menu. Existing rows are kept.
func (a *Application) SeedData() {
	a.checkCategories()
	a.checkProducts()
}
