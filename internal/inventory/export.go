package inventory

import (
	"context"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/unicafe/cafeteria/internal/domain"
)

// LedgerRow is one line of the ledger CSV export.
type LedgerRow struct {
	ID            int64  `csv:"id"`
	Time          string `csv:"time"`
	ProductID     int64  `csv:"product_id"`
	ProductName   string `csv:"product_name"`
	Type          string `csv:"type"`
	Quantity      int    `csv:"quantity"`
	PreviousStock int    `csv:"previous_stock"`
	NewStock      int    `csv:"new_stock"`
	Reason        string `csv:"reason"`
	ReferenceType string `csv:"reference_type"`
	ReferenceID   string `csv:"reference_id"`
	ActorID       string `csv:"actor_id"`
}

// ledgerEntry is an inventory log row with the name of its product.
type ledgerEntry struct {
	domain.InventoryLog
	ProductName string
}

// Rows loads ledger entries created in [from, to) oldest first, joined with
// product names. A zero bound is open.
func (l *Ledger) Rows(ctx context.Context, from, to time.Time) ([]*LedgerRow, error) {
	query := l.db.WithContext(ctx).Model(&domain.InventoryLog{}).
		Select("inventory_log.*, COALESCE(product.name, '') AS product_name").
		Joins("LEFT JOIN product ON product.id = inventory_log.product_id")
	if !from.IsZero() {
		query = query.Where("inventory_log.created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("inventory_log.created_at < ?", to)
	}
	var logs []ledgerEntry
	err := query.Order("inventory_log.created_at ASC, inventory_log.id ASC").Scan(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "query inventory log")
	}

	rows := make([]*LedgerRow, 0, len(logs))
	for _, e := range logs {
		row := &LedgerRow{
			ID:            e.ID,
			Time:          e.CreatedAt.UTC().Format(time.RFC3339),
			ProductID:     e.ProductID,
			ProductName:   e.ProductName,
			Type:          string(e.Type),
			Quantity:      e.Quantity,
			PreviousStock: e.PreviousStock,
			NewStock:      e.NewStock,
			Reason:        e.Reason,
			ReferenceType: e.ReferenceType,
		}
		if e.ReferenceID != nil {
			row.ReferenceID = cast.ToString(*e.ReferenceID)
		}
		if e.ActorID != nil {
			row.ActorID = cast.ToString(*e.ActorID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportCSV writes the ledger entries of [from, to) as CSV with a header row.
func (l *Ledger) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) (int, error) {
	rows, err := l.Rows(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, errors.Wrap(err, "write ledger csv")
	}
	return len(rows), nil
}
