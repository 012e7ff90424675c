package pantry

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

const (
	defaultQuantity = 1
	defaultUnit     = "pieces"
)

// rawLineItem mirrors the item shape the extraction prompt asks for.
// Pointer fields distinguish "absent" from zero.
type rawLineItem struct {
	Name          string           `json:"name"`
	Quantity      *float64         `json:"quantity"`
	Unit          string           `json:"unit"`
	Price         *decimal.Decimal `json:"price"`
	ShelfLifeDays *int             `json:"estimated_expiry_days"`
}

type rawPayload struct {
	Items        []rawLineItem    `json:"items"`
	ReceiptTotal *decimal.Decimal `json:"receipt_total"`
}

// Normalize maps a raw model response into a canonical ExtractionResult.
// The model is instructed to emit only the payload, but may wrap it in
// prose or markdown fences, so decoding is two-stage: a strict decode of
// the whole response first, then a balance-aware scan for the first
// embedded container. Normalize never fails; anything undecodable yields
// an empty result for the reviewer to handle.
func Normalize(raw string) ExtractionResult {
	text := scanning.StripCodeFences(raw)

	payload, ok := decodePayload(text)
	if !ok {
		embedded, found := scanning.FirstPayload(text)
		if !found {
			return ExtractionResult{Items: []LineItem{}}
		}
		payload, ok = decodePayload(embedded)
		if !ok {
			return ExtractionResult{Items: []LineItem{}}
		}
	}

	items := make([]LineItem, 0, len(payload.Items))
	for _, r := range payload.Items {
		items = append(items, normalizeItem(r))
	}

	total := payload.ReceiptTotal
	if total != nil && total.IsNegative() {
		total = nil
	}

	return ExtractionResult{Items: items, ReceiptTotal: total}
}

// decodePayload accepts the two shapes the service emits: an object with
// items and an optional receipt_total, or a bare item array from the
// simpler extraction modes.
func decodePayload(text string) (rawPayload, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return rawPayload{}, false
	}

	switch trimmed[0] {
	case '{':
		var payload rawPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return rawPayload{}, false
		}
		return payload, true
	case '[':
		var items []rawLineItem
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return rawPayload{}, false
		}
		return rawPayload{Items: items}, true
	default:
		return rawPayload{}, false
	}
}

// ParseNutrition decodes a nutrition-label response with the same
// defensive two-stage approach as Normalize. Unlike line items there is no
// meaningful empty value, so the second return reports whether anything
// usable was found.
func ParseNutrition(raw string) (*NutritionFacts, bool) {
	text := scanning.StripCodeFences(raw)

	var facts NutritionFacts
	if err := json.Unmarshal([]byte(text), &facts); err == nil {
		return &facts, true
	}

	embedded, found := scanning.FirstPayload(text)
	if !found || !strings.HasPrefix(embedded, "{") {
		return nil, false
	}
	if err := json.Unmarshal([]byte(embedded), &facts); err != nil {
		return nil, false
	}
	return &facts, true
}

func normalizeItem(r rawLineItem) LineItem {
	item := LineItem{
		Name:          strings.TrimSpace(r.Name),
		Quantity:      defaultQuantity,
		Unit:          defaultUnit,
		Price:         r.Price,
		ShelfLifeDays: r.ShelfLifeDays,
	}
	if r.Quantity != nil && *r.Quantity > 0 {
		item.Quantity = *r.Quantity
	}
	if unit := strings.TrimSpace(r.Unit); unit != "" {
		item.Unit = unit
	}
	if item.Price != nil && item.Price.IsNegative() {
		item.Price = nil
	}
	if item.ShelfLifeDays != nil && *item.ShelfLifeDays < 0 {
		item.ShelfLifeDays = nil
	}
	return item
}
