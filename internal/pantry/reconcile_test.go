package pantry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-tracker/internal/scanning"
)

// mockExtractor replays scripted responses and records the instructions it
// was given.
type mockExtractor struct {
	responses    []string
	errs         []error
	instructions []string
}

func (m *mockExtractor) Extract(ctx context.Context, imageData []byte, contentType string, instruction string) (string, error) {
	call := len(m.instructions)
	m.instructions = append(m.instructions, instruction)
	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if call < len(m.responses) {
		return m.responses[call], nil
	}
	return "", fmt.Errorf("unexpected extract call %d", call)
}

func (m *mockExtractor) Close() error {
	return nil
}

func itemsPayload(total string, prices ...string) string {
	var items []string
	for i, p := range prices {
		items = append(items, fmt.Sprintf(`{"name":"Item %d","price":%s}`, i+1, p))
	}
	payload := fmt.Sprintf(`{"items":[%s]`, strings.Join(items, ","))
	if total != "" {
		payload += fmt.Sprintf(`,"receipt_total":%s`, total)
	}
	return payload + "}"
}

var _ = Describe("Reconciler", func() {
	var (
		extractor  *mockExtractor
		reconciler *Reconciler
		result     ExtractionResult
		report     ReconcileReport
		err        error
	)

	BeforeEach(func() {
		extractor = &mockExtractor{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		reconciler = NewReconciler(extractor, logger)
	})

	JustBeforeEach(func() {
		result, report, err = reconciler.Reconcile(context.Background(), []byte("image"), "image/jpeg")
	})

	When("item prices sum within tolerance of the receipt total", func() {
		BeforeEach(func() {
			extractor.responses = []string{itemsPayload("20.00", "10.00", "9.95")}
		})

		It("accepts without a corrective call", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(extractor.instructions).To(HaveLen(1))
		})

		It("reports the matched totals", func() {
			Expect(report.Attempts).To(Equal(1))
			Expect(report.RetryIssued).To(BeFalse())
			Expect(report.TotalsMatch).To(BeTrue())
			Expect(report.ItemSum.Equal(decimal.RequireFromString("19.95"))).To(BeTrue())
			Expect(report.Difference.Equal(decimal.RequireFromString("0.05"))).To(BeTrue())
		})
	})

	When("item prices disagree with the receipt total beyond tolerance", func() {
		BeforeEach(func() {
			extractor.responses = []string{
				itemsPayload("25.00", "15.00"),
				itemsPayload("25.00", "15.00", "10.00"),
			}
		})

		It("issues exactly one corrective call", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(extractor.instructions).To(HaveLen(2))
		})

		It("names both figures in the corrective instruction", func() {
			Expect(extractor.instructions[1]).To(ContainSubstring("15.00"))
			Expect(extractor.instructions[1]).To(ContainSubstring("25.00"))
		})

		It("adopts the corrected result", func() {
			Expect(result.Items).To(HaveLen(2))
			Expect(result.Items[1].Price.Equal(decimal.RequireFromString("10.00"))).To(BeTrue())
			Expect(report.Attempts).To(Equal(2))
			Expect(report.RetryIssued).To(BeTrue())
			Expect(report.ItemSum.Equal(decimal.RequireFromString("25.00"))).To(BeTrue())
			Expect(report.TotalsMatch).To(BeTrue())
		})
	})

	When("the mismatch persists after the corrective call", func() {
		BeforeEach(func() {
			extractor.responses = []string{
				itemsPayload("25.00", "15.00"),
				itemsPayload("25.00", "14.00"),
			}
		})

		It("does not retry again", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(extractor.instructions).To(HaveLen(2))
		})

		It("returns the corrected candidate with the mismatch reported", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(report.TotalsMatch).To(BeFalse())
			Expect(report.Difference.Equal(decimal.RequireFromString("11.00"))).To(BeTrue())
		})
	})

	When("the corrective extraction yields no items", func() {
		BeforeEach(func() {
			extractor.responses = []string{
				itemsPayload("25.00", "15.00"),
				"sorry, nothing legible",
			}
		})

		It("keeps the first result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Price.Equal(decimal.RequireFromString("15.00"))).To(BeTrue())
		})
	})

	When("the corrective extraction fails transiently", func() {
		BeforeEach(func() {
			extractor.responses = []string{itemsPayload("25.00", "15.00"), ""}
			extractor.errs = []error{nil, fmt.Errorf("%w: timeout", scanning.ErrServiceUnavailable)}
		})

		It("keeps the first result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(report.RetryIssued).To(BeTrue())
			Expect(report.Attempts).To(Equal(1))
		})
	})

	When("the corrective extraction fails on credentials", func() {
		BeforeEach(func() {
			extractor.responses = []string{itemsPayload("25.00", "15.00"), ""}
			extractor.errs = []error{nil, fmt.Errorf("%w: revoked", scanning.ErrInvalidCredentials)}
		})

		It("surfaces the fatal error", func() {
			Expect(errors.Is(err, scanning.ErrInvalidCredentials)).To(BeTrue())
		})
	})

	When("no receipt total was extracted", func() {
		BeforeEach(func() {
			extractor.responses = []string{itemsPayload("", "3.00", "4.00")}
		})

		It("has nothing to reconcile against", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(extractor.instructions).To(HaveLen(1))
			Expect(report.TotalsMatch).To(BeTrue())
			Expect(report.ReceiptTotal).To(BeNil())
		})
	})

	When("extraction yields no items", func() {
		BeforeEach(func() {
			extractor.responses = []string{`{"items":[],"receipt_total":12.00}`}
		})

		It("returns the empty result unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Empty()).To(BeTrue())
			Expect(extractor.instructions).To(HaveLen(1))
		})
	})

	When("the first extraction fails", func() {
		BeforeEach(func() {
			extractor.errs = []error{fmt.Errorf("%w: connection refused", scanning.ErrServiceUnavailable)}
		})

		It("propagates the failure without retrying", func() {
			Expect(errors.Is(err, scanning.ErrServiceUnavailable)).To(BeTrue())
			Expect(extractor.instructions).To(HaveLen(1))
		})
	})
})
