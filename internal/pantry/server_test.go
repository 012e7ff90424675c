package pantry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-tracker/internal/recipes"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

func multipartBody(fieldName, filename string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db         *mockDB
		storage    *mockStorage
		reconciler *mockReconciler
		extractor  *mockExtractor
		generator  *mockGenerator
		server     *Server
		recorder   *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		reconciler = &mockReconciler{}
		extractor = &mockExtractor{}
		generator = &mockGenerator{}
		service := NewServiceWithDeps(db, storage, reconciler, extractor, generator,
			&sequentialIDGenerator{}, &fixedTimeSource{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, recipes.NewGenerator(generator), BasicAuth{}, http.NewServeMux())
		recorder = httptest.NewRecorder()
	})

	Describe("POST /api/receipts", func() {
		BeforeEach(func() {
			price := decimal.RequireFromString("4.50")
			total := decimal.RequireFromString("4.50")
			reconciler.result = ExtractionResult{
				Items:        []LineItem{{Name: "Milk", Quantity: 1, Unit: "gal", Price: &price}},
				ReceiptTotal: &total,
			}
			reconciler.report = ReconcileReport{Attempts: 1, ItemSum: price, ReceiptTotal: &total, TotalsMatch: true}
		})

		It("returns the scan outcome for review", func() {
			body, contentType := multipartBody("file", "receipt.jpg", []byte("image"))
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var outcome ScanOutcome
			Expect(json.Unmarshal(recorder.Body.Bytes(), &outcome)).To(Succeed())
			Expect(outcome.Result.Items).To(HaveLen(1))
			Expect(outcome.Result.Items[0].Name).To(Equal("Milk"))
			Expect(outcome.Report.TotalsMatch).To(BeTrue())
			Expect(outcome.Receipt.ID).NotTo(BeEmpty())
		})

		It("rejects a request without a file", func() {
			body, contentType := multipartBody("other", "receipt.jpg", []byte("image"))
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps a transient extraction failure to 502", func() {
			reconciler.err = fmt.Errorf("%w: timeout", scanning.ErrServiceUnavailable)
			body, contentType := multipartBody("file", "receipt.jpg", []byte("image"))
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadGateway))
		})

		It("maps a credential failure to 500", func() {
			reconciler.err = fmt.Errorf("%w: revoked", scanning.ErrInvalidCredentials)
			body, contentType := multipartBody("file", "receipt.jpg", []byte("image"))
			req := httptest.NewRequest("POST", "/api/receipts", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("receipt history", func() {
		BeforeEach(func() {
			storage.files["r1_receipt.jpg"] = []byte("image bytes")
			db.receipts["r1"] = &Receipt{ID: "r1", Filename: "r1_receipt.jpg", ContentType: "image/jpeg", ItemCount: 2}
		})

		It("lists scans", func() {
			req := httptest.NewRequest("GET", "/api/receipts", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var receipts []*Receipt
			Expect(json.Unmarshal(recorder.Body.Bytes(), &receipts)).To(Succeed())
			Expect(receipts).To(HaveLen(1))
		})

		It("returns a single scan", func() {
			req := httptest.NewRequest("GET", "/api/receipts/r1", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
		})

		It("serves the stored file", func() {
			req := httptest.NewRequest("GET", "/api/receipts/r1/file", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(recorder.Body.Bytes()).To(Equal([]byte("image bytes")))
		})

		It("404s for an unknown scan", func() {
			req := httptest.NewRequest("GET", "/api/receipts/nope", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})

		It("deletes a scan", func() {
			req := httptest.NewRequest("DELETE", "/api/receipts/r1", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
		})
	})

	Describe("POST /api/inventory", func() {
		It("materializes confirmed items, dropping blank names", func() {
			payload := `{"items":[
				{"name":"Milk","quantity":1,"unit":"gal","price":4.50,"estimated_expiry_days":7},
				{"name":"   ","quantity":1,"unit":"pieces"}
			]}`
			req := httptest.NewRequest("POST", "/api/inventory", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusCreated))
			var records []*InventoryItem
			Expect(json.Unmarshal(recorder.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ItemName).To(Equal("Milk"))
			Expect(records[0].ExpiryDate).NotTo(BeNil())
			Expect(db.inventory).To(HaveLen(1))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest("POST", "/api/inventory", strings.NewReader("{"))
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/inventory", func() {
		It("lists records", func() {
			db.inventory["i1"] = &InventoryItem{ID: "i1", ItemName: "Milk"}
			req := httptest.NewRequest("GET", "/api/inventory", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var items []*InventoryItem
			Expect(json.Unmarshal(recorder.Body.Bytes(), &items)).To(Succeed())
			Expect(items).To(HaveLen(1))
		})
	})

	Describe("DELETE /api/inventory/{id}", func() {
		It("removes the record", func() {
			db.inventory["i1"] = &InventoryItem{ID: "i1", ItemName: "Milk"}
			req := httptest.NewRequest("DELETE", "/api/inventory/i1", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(db.inventory).To(BeEmpty())
		})
	})

	Describe("POST /api/inventory/voice", func() {
		It("adds parsed items", func() {
			generator.response = `[{"name":"Rice","quantity":2,"unit":"lbs","estimated_expiry_days":180}]`
			req := httptest.NewRequest("POST", "/api/inventory/voice", strings.NewReader(`{"transcript":"add two pounds of rice"}`))
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusCreated))
			Expect(db.inventory).To(HaveLen(1))
		})

		It("rejects an empty transcript", func() {
			req := httptest.NewRequest("POST", "/api/inventory/voice", strings.NewReader(`{"transcript":"  "}`))
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/inventory/{id}/nutrition", func() {
		It("attaches label facts to the record", func() {
			db.inventory["i1"] = &InventoryItem{ID: "i1", ItemName: "Yogurt"}
			extractor.responses = []string{`{"calories":110,"protein":9,"carbs":12,"fats":2.5}`}

			body, contentType := multipartBody("file", "label.png", []byte("label"))
			req := httptest.NewRequest("POST", "/api/inventory/i1/nutrition", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(*db.inventory["i1"].CaloriesPerUnit).To(Equal(110.0))
		})

		It("404s for an unknown record", func() {
			body, contentType := multipartBody("file", "label.png", []byte("label"))
			req := httptest.NewRequest("POST", "/api/inventory/nope/nutrition", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/recipes", func() {
		BeforeEach(func() {
			generator.response = `{"name":"Fried Rice","ingredients":[{"name":"Rice","quantity":2,"unit":"cups"}],"instructions":["cook it"],"servings":2,"calories_per_serving":400,"protein_per_serving":10,"carbs_per_serving":60,"fats_per_serving":8}`
		})

		It("generates a recipe from named ingredients", func() {
			req := httptest.NewRequest("POST", "/api/recipes", strings.NewReader(`{"ingredients":["Rice","Eggs"],"mode":"use-it-up"}`))
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var recipe recipes.Recipe
			Expect(json.Unmarshal(recorder.Body.Bytes(), &recipe)).To(Succeed())
			Expect(recipe.Name).To(Equal("Fried Rice"))
			Expect(generator.prompts[0]).To(ContainSubstring("ONLY these ingredients"))
		})

		It("falls back to the inventory when no ingredients are given", func() {
			db.inventory["i1"] = &InventoryItem{ID: "i1", ItemName: "Rice"}
			req := httptest.NewRequest("POST", "/api/recipes", strings.NewReader(`{}`))
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(generator.prompts[0]).To(ContainSubstring("Rice"))
		})
	})

	Describe("shopping list", func() {
		It("adds, toggles and removes entries", func() {
			req := httptest.NewRequest("POST", "/api/shopping-list", strings.NewReader(`{"name":"Olive oil","quantity":1,"unit":"pieces"}`))
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var item ShoppingItem
			Expect(json.Unmarshal(recorder.Body.Bytes(), &item)).To(Succeed())

			recorder = httptest.NewRecorder()
			req = httptest.NewRequest("PATCH", "/api/shopping-list/"+item.ID, nil)
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(db.shopping[item.ID].Purchased).To(BeTrue())

			recorder = httptest.NewRecorder()
			req = httptest.NewRequest("GET", "/api/shopping-list", nil)
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			recorder = httptest.NewRecorder()
			req = httptest.NewRequest("DELETE", "/api/shopping-list/"+item.ID, nil)
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(db.shopping).To(BeEmpty())
		})

		It("rejects a blank name", func() {
			req := httptest.NewRequest("POST", "/api/shopping-list", strings.NewReader(`{"name":"  "}`))
			server.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			service := NewServiceWithDeps(db, storage, reconciler, extractor, generator,
				&sequentialIDGenerator{}, &fixedTimeSource{now: time.Now()})
			server = NewServerWithMux(service, recipes.NewGenerator(generator), BasicAuth{Username: "user", Password: "pass"}, http.NewServeMux())
		})

		It("rejects requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/inventory", nil)
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(recorder.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/inventory", nil)
			req.SetBasicAuth("user", "wrong")
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/inventory", nil)
			req.SetBasicAuth("user", "pass")
			server.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusOK))
		})
	})
})
