package pantry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zombor/pantry-tracker/internal/scanning"
)

// ErrPersistence indicates the store rejected a write. Confirmed items are
// not dropped; the caller retries the materialize step, not the extraction.
var ErrPersistence = errors.New("persistence failure")

// IDGenerator generates unique record IDs.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ReceiptReconciler is the reconciliation step the service drives. The
// concrete implementation is Reconciler; tests substitute their own.
type ReceiptReconciler interface {
	Reconcile(ctx context.Context, imageData []byte, contentType string) (ExtractionResult, ReconcileReport, error)
}

// ScanOutcome is everything a review surface needs after a receipt scan.
type ScanOutcome struct {
	Receipt *Receipt         `json:"receipt"`
	Result  ExtractionResult `json:"result"`
	Report  ReconcileReport  `json:"report"`
}

// Service orchestrates the receipt pipeline and inventory operations.
type Service struct {
	db          DB
	storage     Storage
	reconciler  ReceiptReconciler
	extractor   scanning.Extractor
	generator   scanning.TextGenerator
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with default ID generator and time source.
func NewService(db DB, storage Storage, reconciler ReceiptReconciler, extractor scanning.Extractor, generator scanning.TextGenerator) *Service {
	return NewServiceWithDeps(db, storage, reconciler, extractor, generator, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, storage Storage, reconciler ReceiptReconciler, extractor scanning.Extractor, generator scanning.TextGenerator, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		reconciler:  reconciler,
		extractor:   extractor,
		generator:   generator,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameJunk   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated filenames before storage.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameJunk.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessReceipt stores the uploaded image, runs the reconciliation cycle
// and records the scan. The returned outcome goes to the review surface;
// nothing is added to the inventory until the reviewer confirms.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*ScanOutcome, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, report, err := s.reconciler.Reconcile(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to reconcile receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("reconciling receipt: %w", err)
	}

	receipt := &Receipt{
		ID:           id,
		Filename:     savedPath,
		ContentType:  contentType,
		ItemCount:    len(result.Items),
		ItemSum:      report.ItemSum,
		ReceiptTotal: report.ReceiptTotal,
		TotalsMatch:  report.TotalsMatch,
		CreatedAt:    now,
	}
	if err := s.db.SaveReceipt(receipt); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return &ScanOutcome{Receipt: receipt, Result: result, Report: report}, nil
}

// ConfirmItems materializes a confirmed item set into inventory records
// and persists them in one batch.
func (s *Service) ConfirmItems(items ConfirmedItemSet) ([]*InventoryItem, error) {
	now := s.timeSource.Now()

	materialized := Materialize(items, now)
	records := make([]*InventoryItem, 0, len(materialized))
	for i := range materialized {
		record := materialized[i]
		record.ID = s.idGenerator.Generate()
		record.CreatedAt = now
		record.UpdatedAt = now
		records = append(records, &record)
	}

	if len(records) == 0 {
		return records, nil
	}
	if err := s.db.InsertInventory(records); err != nil {
		return nil, fmt.Errorf("%w: inserting inventory records: %s", ErrPersistence, err)
	}
	return records, nil
}

// AddSpokenItems parses a voice transcript into line items and adds them to
// the inventory. Spoken entries skip review; the speaker is the reviewer.
func (s *Service) AddSpokenItems(ctx context.Context, transcript string) ([]*InventoryItem, error) {
	raw, err := s.generator.Generate(ctx, scanning.VoicePrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("processing voice command: %w", err)
	}

	result := Normalize(raw)
	return s.ConfirmItems(ConfirmItems(result.Items))
}

// AttachNutrition scans a nutrition label image and writes the per-unit
// facts onto an existing inventory record.
func (s *Service) AttachNutrition(ctx context.Context, itemID string, imageData []byte, contentType string) (*InventoryItem, error) {
	item, err := s.db.GetInventoryItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("getting inventory item: %w", err)
	}

	raw, err := s.extractor.Extract(ctx, imageData, contentType, scanning.NutritionPrompt)
	if err != nil {
		return nil, fmt.Errorf("scanning nutrition label: %w", err)
	}

	facts, ok := ParseNutrition(raw)
	if !ok {
		return nil, fmt.Errorf("no nutrition facts found on label")
	}

	item.CaloriesPerUnit = &facts.Calories
	item.ProteinPerUnit = &facts.Protein
	item.CarbsPerUnit = &facts.Carbs
	item.FatsPerUnit = &facts.Fats
	item.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveInventoryItem(item); err != nil {
		return nil, fmt.Errorf("%w: updating inventory item: %s", ErrPersistence, err)
	}
	return item, nil
}

// ListInventory returns all inventory records, soonest expiry first.
// Records without an expiry date sort last.
func (s *Service) ListInventory() ([]*InventoryItem, error) {
	items, err := s.db.ListInventory()
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ExpiryDate, items[j].ExpiryDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return items, nil
}

// GetInventoryItem retrieves an inventory record by ID.
func (s *Service) GetInventoryItem(id string) (*InventoryItem, error) {
	item, err := s.db.GetInventoryItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting inventory item: %w", err)
	}
	return item, nil
}

// DeleteInventoryItem removes an inventory record.
func (s *Service) DeleteInventoryItem(id string) error {
	if err := s.db.DeleteInventoryItem(id); err != nil {
		return fmt.Errorf("deleting inventory item: %w", err)
	}
	return nil
}

// ListReceipts returns the scan history.
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// GetReceipt retrieves a scan-history record by ID.
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// GetReceiptFile retrieves the stored image for a scan-history record.
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}

// DeleteReceipt removes a scan-history record and its stored file.
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// AddShoppingItem adds an entry to the shopping list.
func (s *Service) AddShoppingItem(name string, quantity float64, unit string) (*ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("shopping item name is required")
	}
	if quantity <= 0 {
		quantity = defaultQuantity
	}
	if strings.TrimSpace(unit) == "" {
		unit = defaultUnit
	}

	now := s.timeSource.Now()
	item := &ShoppingItem{
		ID:        s.idGenerator.Generate(),
		Name:      name,
		Quantity:  quantity,
		Unit:      unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.SaveShoppingItem(item); err != nil {
		return nil, fmt.Errorf("saving shopping item: %w", err)
	}
	return item, nil
}

// ListShoppingItems returns the shopping list.
func (s *Service) ListShoppingItems() ([]*ShoppingItem, error) {
	items, err := s.db.ListShoppingItems()
	if err != nil {
		return nil, fmt.Errorf("listing shopping items: %w", err)
	}
	return items, nil
}

// ToggleShoppingItem flips an entry's purchased flag.
func (s *Service) ToggleShoppingItem(id string) (*ShoppingItem, error) {
	item, err := s.db.GetShoppingItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting shopping item: %w", err)
	}
	item.Purchased = !item.Purchased
	item.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveShoppingItem(item); err != nil {
		return nil, fmt.Errorf("saving shopping item: %w", err)
	}
	return item, nil
}

// RemoveShoppingItem removes an entry from the shopping list.
func (s *Service) RemoveShoppingItem(id string) error {
	if err := s.db.DeleteShoppingItem(id); err != nil {
		return fmt.Errorf("deleting shopping item: %w", err)
	}
	return nil
}
