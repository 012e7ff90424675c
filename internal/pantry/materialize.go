package pantry

import "time"

// Materialize converts a confirmed item set into inventory records as of
// the given date, preserving order. The expiry date is the absolute date
// derived from the shelf-life estimate; items without an estimate get none.
// Pure: identifiers and timestamps are stamped at persist time, so the same
// inputs always produce structurally identical output.
func Materialize(items ConfirmedItemSet, asOf time.Time) []InventoryItem {
	records := make([]InventoryItem, 0, len(items))
	for _, item := range items {
		record := InventoryItem{
			ItemName: item.Name,
			Category: DefaultCategory,
			Quantity: item.Quantity,
			Unit:     item.Unit,
			Price:    item.Price,
		}
		if item.ShelfLifeDays != nil {
			expiry := asOf.AddDate(0, 0, *item.ShelfLifeDays)
			record.ExpiryDate = &expiry
		}
		records = append(records, record)
	}
	return records
}
