package pantry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

// priceTolerance is the fixed allowance between the sum of item prices and
// the stated receipt total. Absolute rather than percentage-based, and
// deliberately loose: it absorbs rounding and tax display quirks, and the
// ultimate correctness gate is the human review step.
var priceTolerance = decimal.New(10, -2) // $0.10

// ReconcileReport describes what a reconciliation cycle did. It is
// informational: a persisting mismatch is reported to the reviewer, never
// treated as fatal.
type ReconcileReport struct {
	Attempts     int              `json:"attempts"`
	RetryIssued  bool             `json:"retry_issued"`
	ItemSum      decimal.Decimal  `json:"item_sum"`
	ReceiptTotal *decimal.Decimal `json:"receipt_total,omitempty"`
	Difference   decimal.Decimal  `json:"difference"`
	TotalsMatch  bool             `json:"totals_match"`
}

// Reconciler runs extraction and checks the extracted item prices against
// the stated receipt total, issuing at most one corrective re-extraction
// when they disagree beyond tolerance.
type Reconciler struct {
	extractor scanning.Extractor
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger falls back to the
// default slog logger.
func NewReconciler(extractor scanning.Extractor, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{extractor: extractor, logger: logger}
}

// Reconcile extracts line items from a receipt image and finalizes the
// best-available item set. The finalized result is returned regardless of
// whether the totals ended up matching; an exact match is a best-effort
// goal, not a precondition for human review.
func (r *Reconciler) Reconcile(ctx context.Context, imageData []byte, contentType string) (ExtractionResult, ReconcileReport, error) {
	raw, err := r.extractor.Extract(ctx, imageData, contentType, scanning.ReceiptPrompt)
	if err != nil {
		return ExtractionResult{}, ReconcileReport{}, err
	}

	result := Normalize(raw)
	report := ReconcileReport{
		Attempts:     1,
		ItemSum:      result.ItemSum(),
		ReceiptTotal: result.ReceiptTotal,
		TotalsMatch:  true,
	}

	// Nothing to reconcile against without both a total and items.
	if result.ReceiptTotal == nil || result.Empty() {
		return result, report, nil
	}

	report.Difference = report.ItemSum.Sub(*result.ReceiptTotal).Abs()
	if report.Difference.LessThanOrEqual(priceTolerance) {
		return result, report, nil
	}

	report.TotalsMatch = false
	report.RetryIssued = true
	r.logger.Info("receipt total mismatch, issuing corrective extraction",
		"item_sum", report.ItemSum.StringFixed(2),
		"receipt_total", result.ReceiptTotal.StringFixed(2),
		"difference", report.Difference.StringFixed(2),
	)

	prompt := scanning.CorrectivePrompt(report.ItemSum.StringFixed(2), result.ReceiptTotal.StringFixed(2))
	raw, err = r.extractor.Extract(ctx, imageData, contentType, prompt)
	if err != nil {
		// A dead credential is fatal for the whole pipeline. Any other
		// failure of the corrective call means no second result was
		// obtained, so the first one stands.
		if errors.Is(err, scanning.ErrInvalidCredentials) {
			return ExtractionResult{}, report, err
		}
		r.logger.Warn("corrective extraction failed, keeping first result", "error", err)
		return result, report, nil
	}
	report.Attempts = 2

	retried := Normalize(raw)
	if retried.Empty() {
		r.logger.Warn("corrective extraction yielded no items, keeping first result")
		return result, report, nil
	}

	result = retried
	report.ItemSum = result.ItemSum()
	if result.ReceiptTotal != nil {
		report.ReceiptTotal = result.ReceiptTotal
	}
	report.Difference = report.ItemSum.Sub(*report.ReceiptTotal).Abs()
	report.TotalsMatch = report.Difference.LessThanOrEqual(priceTolerance)
	if !report.TotalsMatch {
		// Reported for the reviewer; not retried again and not fatal.
		r.logger.Warn("receipt total mismatch persists after corrective extraction",
			"item_sum", report.ItemSum.StringFixed(2),
			"receipt_total", report.ReceiptTotal.StringFixed(2),
			"difference", report.Difference.StringFixed(2),
		)
	}

	return result, report, nil
}
