package scanning

import "fmt"

// ReceiptPrompt instructs the model to extract food line items and the
// stated total from a receipt photo as a single JSON object.
const ReceiptPrompt = `You are a professional receipt parser. Analyze this receipt image and extract all food items with their quantities, units, and prices, plus the final total printed on the receipt.

Return the data as JSON in this exact format:
{
  "items": [
    {
      "name": "item name",
      "quantity": number,
      "unit": "unit type (e.g., 'pieces', 'lbs', 'oz', 'kg', 'g')",
      "price": number (if available),
      "estimated_expiry_days": number (estimate based on item type: fresh produce 3-7 days, dairy 5-10 days, meat 2-5 days, pantry items 30-365 days)
    }
  ],
  "receipt_total": number (the grand total printed on the receipt, omit if not visible)
}

Important:
- Prices must be numbers representing dollars and cents, not strings
- If a field cannot be read, omit it rather than guessing
- Only return valid JSON, no additional text`

// CorrectivePrompt builds the follow-up instruction issued when the sum of
// extracted item prices disagrees with the stated receipt total. Both
// figures are named so the model can re-read the per-item prices against a
// known target.
func CorrectivePrompt(itemSum, receiptTotal string) string {
	return fmt.Sprintf(`You are a professional receipt parser. A previous extraction of this receipt produced item prices summing to $%s, but the receipt's printed total is $%s. Re-read the receipt carefully and extract corrected per-item prices so that they account for the printed total.

Return the data as JSON in this exact format:
{
  "items": [
    {
      "name": "item name",
      "quantity": number,
      "unit": "unit type (e.g., 'pieces', 'lbs', 'oz', 'kg', 'g')",
      "price": number,
      "estimated_expiry_days": number (estimate based on item type)
    }
  ],
  "receipt_total": number
}

Only return valid JSON, no additional text`, itemSum, receiptTotal)
}

// NutritionPrompt instructs the model to read a nutrition facts label.
const NutritionPrompt = `You are a nutrition label parser. Extract the nutritional information from this label.

Return the data as JSON in this exact format:
{
  "calories": number (per serving),
  "protein": number (grams per serving),
  "carbs": number (grams per serving),
  "fats": number (grams per serving)
}

Only return valid JSON, no additional text`

// VoicePrompt builds the instruction for turning a spoken command into
// inventory line items.
func VoicePrompt(command string) string {
	return fmt.Sprintf(`You are a voice command processor for a kitchen inventory app. Parse this voice command and extract food items:

"%s"

Return the data as a JSON array in this exact format:
[
  {
    "name": "item name",
    "quantity": number,
    "unit": "unit type (e.g., 'pieces', 'lbs', 'oz', 'kg', 'g')",
    "estimated_expiry_days": number (estimate based on item type)
  }
]

Only return valid JSON, no additional text`, command)
}
