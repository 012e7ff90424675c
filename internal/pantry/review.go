package pantry

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemField names an editable LineItem field for Review.Edit.
type ItemField string

const (
	FieldName      ItemField = "name"
	FieldQuantity  ItemField = "quantity"
	FieldUnit      ItemField = "unit"
	FieldPrice     ItemField = "price"
	FieldShelfLife ItemField = "estimated_expiry_days"
)

// Review is the in-memory session backing a human review of an extraction
// result. All mutations are local; nothing touches the store until the
// confirmed set is materialized. Not safe for concurrent use.
type Review struct {
	items        []LineItem
	receiptTotal *decimal.Decimal
}

// NewReview starts a review session over a finalized extraction result.
func NewReview(result ExtractionResult) *Review {
	items := make([]LineItem, len(result.Items))
	copy(items, result.Items)
	return &Review{items: items, receiptTotal: result.ReceiptTotal}
}

// Items returns a copy of the current candidate item set.
func (r *Review) Items() []LineItem {
	items := make([]LineItem, len(r.items))
	copy(items, r.items)
	return items
}

// Edit sets one field of the item at index. The value type must match the
// field: string for name/unit, float64 for quantity, *decimal.Decimal for
// price (nil clears it), *int for shelf life (nil clears it).
func (r *Review) Edit(index int, field ItemField, value any) error {
	if index < 0 || index >= len(r.items) {
		return fmt.Errorf("item index %d out of range", index)
	}

	switch field {
	case FieldName:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s requires a string", field)
		}
		r.items[index].Name = v
	case FieldQuantity:
		v, ok := value.(float64)
		if !ok || v <= 0 {
			return fmt.Errorf("field %s requires a positive number", field)
		}
		r.items[index].Quantity = v
	case FieldUnit:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s requires a string", field)
		}
		r.items[index].Unit = v
	case FieldPrice:
		v, ok := value.(*decimal.Decimal)
		if !ok {
			return fmt.Errorf("field %s requires a price or nil", field)
		}
		if v != nil && v.IsNegative() {
			return fmt.Errorf("field %s cannot be negative", field)
		}
		r.items[index].Price = v
	case FieldShelfLife:
		v, ok := value.(*int)
		if !ok {
			return fmt.Errorf("field %s requires a day count or nil", field)
		}
		if v != nil && *v < 0 {
			return fmt.Errorf("field %s cannot be negative", field)
		}
		r.items[index].ShelfLifeDays = v
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Remove drops the item at index.
func (r *Review) Remove(index int) error {
	if index < 0 || index >= len(r.items) {
		return fmt.Errorf("item index %d out of range", index)
	}
	r.items = append(r.items[:index], r.items[index+1:]...)
	return nil
}

// Add appends a blank item for the reviewer to fill in.
func (r *Review) Add() {
	shelfLife := 7
	r.items = append(r.items, LineItem{
		Quantity:      defaultQuantity,
		Unit:          defaultUnit,
		ShelfLifeDays: &shelfLife,
	})
}

// RunningTotal sums the prices currently present in the candidate set.
func (r *Review) RunningTotal() decimal.Decimal {
	return ExtractionResult{Items: r.items}.ItemSum()
}

// TotalsMatch reports whether the running total is within tolerance of the
// stated receipt total. With no stated total there is nothing to disagree
// with.
func (r *Review) TotalsMatch() bool {
	if r.receiptTotal == nil {
		return true
	}
	return r.RunningTotal().Sub(*r.receiptTotal).Abs().LessThanOrEqual(priceTolerance)
}

// Confirm finalizes the session, dropping blank-named items. This is the
// sole path from review to materialization; there is no automatic
// confirmation.
func (r *Review) Confirm() ConfirmedItemSet {
	return ConfirmItems(r.items)
}

// ConfirmItems filters blank-named entries out of an item set. Exposed for
// surfaces that collect edits client-side and submit the whole set at once.
func ConfirmItems(items []LineItem) ConfirmedItemSet {
	confirmed := make(ConfirmedItemSet, 0, len(items))
	for _, item := range items {
		if item.Blank() {
			continue
		}
		confirmed = append(confirmed, item)
	}
	return confirmed
}
