package pantry

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Normalize", func() {
	var (
		raw    string
		result ExtractionResult
	)

	JustBeforeEach(func() {
		result = Normalize(raw)
	})

	When("the response is a bare object payload", func() {
		BeforeEach(func() {
			raw = `{"items":[{"name":"Milk","quantity":1,"unit":"gal","price":4.50,"estimated_expiry_days":7}],"receipt_total":4.50}`
		})

		It("parses the item", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Milk"))
			Expect(result.Items[0].Quantity).To(Equal(1.0))
			Expect(result.Items[0].Unit).To(Equal("gal"))
			Expect(result.Items[0].Price.Equal(decimal.RequireFromString("4.50"))).To(BeTrue())
			Expect(*result.Items[0].ShelfLifeDays).To(Equal(7))
		})

		It("parses the receipt total", func() {
			Expect(result.ReceiptTotal).NotTo(BeNil())
			Expect(result.ReceiptTotal.Equal(decimal.RequireFromString("4.50"))).To(BeTrue())
		})
	})

	When("the response is a bare array payload", func() {
		BeforeEach(func() {
			raw = `[{"name":"Eggs","quantity":12,"unit":"pieces"}]`
		})

		It("parses the items with no total", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Eggs"))
			Expect(result.ReceiptTotal).To(BeNil())
		})
	})

	When("the payload is wrapped in prose", func() {
		BeforeEach(func() {
			raw = "Here you go:\n[{\"name\":\"Milk\",\"quantity\":1,\"unit\":\"gal\",\"price\":4.50,\"estimated_expiry_days\":7}]"
		})

		It("extracts the embedded payload", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Milk"))
			Expect(result.ReceiptTotal).To(BeNil())
		})
	})

	When("the payload is wrapped in a markdown fence", func() {
		BeforeEach(func() {
			raw = "```json\n{\"items\":[{\"name\":\"Bread\"}],\"receipt_total\":2.99}\n```"
		})

		It("extracts the payload", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.ReceiptTotal).NotTo(BeNil())
		})
	})

	When("the response is garbage", func() {
		BeforeEach(func() {
			raw = "I could not read this receipt, sorry."
		})

		It("returns an empty result rather than failing", func() {
			Expect(result.Items).To(BeEmpty())
			Expect(result.ReceiptTotal).To(BeNil())
			Expect(result.Empty()).To(BeTrue())
		})
	})

	When("the embedded payload is malformed", func() {
		BeforeEach(func() {
			raw = `result: {"items": [}]`
		})

		It("returns an empty result", func() {
			Expect(result.Items).To(BeEmpty())
			Expect(result.ReceiptTotal).To(BeNil())
		})
	})

	When("an item omits quantity and unit", func() {
		BeforeEach(func() {
			raw = `[{"name":"Butter"}]`
		})

		It("defaults quantity to 1 and unit to pieces", func() {
			Expect(result.Items[0].Quantity).To(Equal(1.0))
			Expect(result.Items[0].Unit).To(Equal("pieces"))
		})

		It("leaves price and shelf life absent", func() {
			Expect(result.Items[0].Price).To(BeNil())
			Expect(result.Items[0].ShelfLifeDays).To(BeNil())
		})
	})

	When("an item carries a negative price", func() {
		BeforeEach(func() {
			raw = `[{"name":"Coupon","price":-1.00}]`
		})

		It("treats the price as unknown", func() {
			Expect(result.Items[0].Price).To(BeNil())
		})
	})

	When("an item has a blank name", func() {
		BeforeEach(func() {
			raw = `[{"name":"  "},{"name":"Rice"}]`
		})

		It("keeps it for the reviewer to fix or confirmation to drop", func() {
			Expect(result.Items).To(HaveLen(2))
			Expect(result.Items[0].Blank()).To(BeTrue())
			Expect(result.Items[1].Blank()).To(BeFalse())
		})
	})
})

var _ = Describe("ItemSum", func() {
	It("sums only the prices that are present", func() {
		p1 := decimal.RequireFromString("2.50")
		p2 := decimal.RequireFromString("3.25")
		result := ExtractionResult{Items: []LineItem{
			{Name: "A", Price: &p1},
			{Name: "B"},
			{Name: "C", Price: &p2},
		}}
		Expect(result.ItemSum().Equal(decimal.RequireFromString("5.75"))).To(BeTrue())
	})
})

var _ = Describe("ParseNutrition", func() {
	It("parses a clean label payload", func() {
		facts, ok := ParseNutrition(`{"calories":110,"protein":3,"carbs":22,"fats":1.5}`)
		Expect(ok).To(BeTrue())
		Expect(facts.Calories).To(Equal(110.0))
		Expect(facts.Fats).To(Equal(1.5))
	})

	It("parses a fenced payload", func() {
		facts, ok := ParseNutrition("```json\n{\"calories\":200,\"protein\":10,\"carbs\":5,\"fats\":12}\n```")
		Expect(ok).To(BeTrue())
		Expect(facts.Protein).To(Equal(10.0))
	})

	It("reports nothing usable on garbage", func() {
		_, ok := ParseNutrition("no label visible")
		Expect(ok).To(BeFalse())
	})

	It("rejects an array payload", func() {
		_, ok := ParseNutrition(`[1,2,3]`)
		Expect(ok).To(BeFalse())
	})
})
