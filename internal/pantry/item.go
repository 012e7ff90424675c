package pantry

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to inventory records whose category is not
// known at materialization time.
const DefaultCategory = "Other"

// LineItem is one extracted product entry from a receipt. Name is free text
// as read off the receipt, not normalized against any catalog. A nil Price
// means unknown, not zero; a nil ShelfLifeDays means no estimate.
type LineItem struct {
	Name          string           `json:"name"`
	Quantity      float64          `json:"quantity"`
	Unit          string           `json:"unit"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	ShelfLifeDays *int             `json:"estimated_expiry_days,omitempty"`
}

// Blank reports whether the item has no usable name. Blank items are
// invalid and are dropped at confirmation.
func (i LineItem) Blank() bool {
	return strings.TrimSpace(i.Name) == ""
}

// ExtractionResult is the outcome of one extraction attempt: line items in
// extraction order plus the total read off the receipt, when visible.
type ExtractionResult struct {
	Items        []LineItem       `json:"items"`
	ReceiptTotal *decimal.Decimal `json:"receipt_total,omitempty"`
}

// Empty reports whether the extraction yielded nothing usable. An empty
// result is a valid outcome, not an error; the reviewer adds items by hand.
func (r ExtractionResult) Empty() bool {
	return len(r.Items) == 0
}

// ItemSum returns the sum of the prices that are present. Items without a
// price contribute nothing but remain in the set.
func (r ExtractionResult) ItemSum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		if item.Price != nil {
			sum = sum.Add(*item.Price)
		}
	}
	return sum
}

// ConfirmedItemSet is the reviewer-approved item set handed to
// materialization. Produced only by Review.Confirm.
type ConfirmedItemSet []LineItem

// InventoryItem is a persisted pantry record. Nutrition fields stay nil
// until a label scan is attached.
type InventoryItem struct {
	ID              string           `json:"id"`
	ItemName        string           `json:"item_name"`
	Category        string           `json:"category"`
	Quantity        float64          `json:"quantity"`
	Unit            string           `json:"unit"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	ExpiryDate      *time.Time       `json:"expiry_date,omitempty"`
	CaloriesPerUnit *float64         `json:"calories_per_unit,omitempty"`
	ProteinPerUnit  *float64         `json:"protein_per_unit,omitempty"`
	CarbsPerUnit    *float64         `json:"carbs_per_unit,omitempty"`
	FatsPerUnit     *float64         `json:"fats_per_unit,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NutritionFacts is the per-serving data read off a nutrition label.
type NutritionFacts struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Receipt is the scan-history record kept for each processed upload.
type Receipt struct {
	ID           string           `json:"id"`
	Filename     string           `json:"filename"`
	ContentType  string           `json:"content_type"`
	ItemCount    int              `json:"item_count"`
	ItemSum      decimal.Decimal  `json:"item_sum"`
	ReceiptTotal *decimal.Decimal `json:"receipt_total,omitempty"`
	TotalsMatch  bool             `json:"totals_match"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ShoppingItem is one entry on the shopping list.
type ShoppingItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Purchased bool      `json:"purchased"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
