package domain

var Tables = []interface{}{
	// Catalog
	&Category{},
	&Product{},
	// Cart
	&Cart{},
	&CartItem{},
	// Order
	&Order{},
	&OrderItem{},
	&OrderSequence{},
	// Inventory
	&InventoryLog{},
}
