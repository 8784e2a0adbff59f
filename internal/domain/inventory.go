package domain

import (
	"time"

	"github.com/unicafe/cafeteria/pkg/common"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementStockIn    MovementType = "stockIn"
	MovementStockOut   MovementType = "stockOut"
	MovementAdjustment MovementType = "adjustment"
	MovementSale       MovementType = "sale"
	MovementExpired    MovementType = "expired"
	MovementDamaged    MovementType = "damaged"
)

// IsDebit reports movement types that may only take stock away.
func (t MovementType) IsDebit() bool {
	switch t {
	case MovementStockOut, MovementSale, MovementExpired, MovementDamaged:
		return true
	}
	return false
}

func (t MovementType) Valid() bool {
	switch t {
	case MovementStockIn, MovementStockOut, MovementAdjustment, MovementSale, MovementExpired, MovementDamaged:
		return true
	}
	return false
}

type referenceKind string

const (
	refNone  referenceKind = ""
	refOrder referenceKind = "order"
)

// Reference points at whatever caused a stock movement. The set of kinds is
// closed: no reference, or an order.
type Reference struct {
	kind referenceKind
	id   int64
}

var NoReference = Reference{}

func OrderReference(orderID int64) Reference {
	return Reference{kind: refOrder, id: orderID}
}

// OrderID returns the referenced order id when the reference is an order.
func (r Reference) OrderID() (int64, bool) {
	return r.id, r.kind == refOrder
}

func (r Reference) IsNone() bool { return r.kind == refNone }

// InventoryLog is an append-only stock movement. NewStock always equals
// PreviousStock + Quantity and is never negative.
type InventoryLog struct {
	ID            int64        `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	ProductID     int64        `json:"product_id,string" gorm:"not null;index"`
	ActorID       *int64       `json:"actor_id,omitempty,string"`
	Type          MovementType `json:"type" gorm:"size:16;index"`
	Quantity      int          `json:"quantity" gorm:"not null"`
	PreviousStock int          `json:"previous_stock" gorm:"not null"`
	NewStock      int          `json:"new_stock" gorm:"not null"`
	Reason        string       `json:"reason" gorm:"size:500"`
	ReferenceType string       `json:"reference_type,omitempty" gorm:"size:32;index:idx_inventory_log_ref,priority:1"`
	ReferenceID   *int64       `json:"reference_id,omitempty,string" gorm:"index:idx_inventory_log_ref,priority:2"`
	CreatedAt     time.Time    `json:"created_at" gorm:"index"`
}

// TableName Specify table name
func (InventoryLog) TableName() string {
	return "inventory_log"
}

func (l *InventoryLog) BeforeCreate(*gorm.DB) error {
	if l.ID == 0 {
		l.ID = common.UUIDint64()
	}
	return nil
}

// BeforeUpdate rejects any attempt to rewrite a ledger row.
func (l *InventoryLog) BeforeUpdate(*gorm.DB) error {
	return ErrLedgerImmutable
}

// BeforeDelete rejects any attempt to remove a ledger row.
func (l *InventoryLog) BeforeDelete(*gorm.DB) error {
	return ErrLedgerImmutable
}

// SetReference stores r in the reference columns.
func (l *InventoryLog) SetReference(r Reference) {
	if r.IsNone() {
		l.ReferenceType = ""
		l.ReferenceID = nil
		return
	}
	id := r.id
	l.ReferenceType = string(r.kind)
	l.ReferenceID = &id
}

// Reference rebuilds the reference from its columns.
func (l *InventoryLog) Reference() Reference {
	if l.ReferenceType == string(refOrder) && l.ReferenceID != nil {
		return OrderReference(*l.ReferenceID)
	}
	return NoReference
}
