package pantry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	inventoryBucket = "inventory"
	receiptBucket   = "receipts"
	shoppingBucket  = "shopping_list"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DB defines the persistence operations the pipeline needs.
type DB interface {
	// InsertInventory saves a batch of inventory records in one
	// transaction. All-or-nothing: a failure leaves none of them saved.
	InsertInventory(items []*InventoryItem) error

	// SaveInventoryItem saves or updates a single inventory record.
	SaveInventoryItem(item *InventoryItem) error

	// GetInventoryItem retrieves an inventory record by ID.
	GetInventoryItem(id string) (*InventoryItem, error)

	// ListInventory returns all inventory records.
	ListInventory() ([]*InventoryItem, error)

	// DeleteInventoryItem removes an inventory record.
	DeleteInventoryItem(id string) error

	// SaveReceipt saves a scan-history record.
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a scan-history record by ID.
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all scan-history records.
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a scan-history record.
	DeleteReceipt(id string) error

	// SaveShoppingItem saves or updates a shopping list entry.
	SaveShoppingItem(item *ShoppingItem) error

	// GetShoppingItem retrieves a shopping list entry by ID.
	GetShoppingItem(id string) (*ShoppingItem, error)

	// ListShoppingItems returns all shopping list entries.
	ListShoppingItems() ([]*ShoppingItem, error)

	// DeleteShoppingItem removes a shopping list entry.
	DeleteShoppingItem(id string) error

	// Close closes the database.
	Close() error
}

// BoltDB implements DB on an embedded bbolt store.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the store at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{inventoryBucket, receiptBucket, shoppingBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func putJSON(tx *bbolt.Tx, bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
}

func (b *BoltDB) getJSON(bucket, id string, out any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, out)
	})
}

func (b *BoltDB) delete(bucket, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(id))
	})
}

// InsertInventory saves all records in a single update transaction.
func (b *BoltDB) InsertInventory(items []*InventoryItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, item := range items {
			if err := putJSON(tx, inventoryBucket, item.ID, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveInventoryItem saves or updates a single inventory record.
func (b *BoltDB) SaveInventoryItem(item *InventoryItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, inventoryBucket, item.ID, item)
	})
}

// GetInventoryItem retrieves an inventory record by ID.
func (b *BoltDB) GetInventoryItem(id string) (*InventoryItem, error) {
	var item InventoryItem
	if err := b.getJSON(inventoryBucket, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInventory returns all inventory records.
func (b *BoltDB) ListInventory() ([]*InventoryItem, error) {
	items := make([]*InventoryItem, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(inventoryBucket)).ForEach(func(k, v []byte) error {
			var item InventoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling inventory record: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteInventoryItem removes an inventory record.
func (b *BoltDB) DeleteInventoryItem(id string) error {
	return b.delete(inventoryBucket, id)
}

// SaveReceipt saves a scan-history record.
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, receiptBucket, receipt.ID, receipt)
	})
}

// GetReceipt retrieves a scan-history record by ID.
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt Receipt
	if err := b.getJSON(receiptBucket, id, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts returns all scan-history records.
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a scan-history record.
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.delete(receiptBucket, id)
}

// SaveShoppingItem saves or updates a shopping list entry.
func (b *BoltDB) SaveShoppingItem(item *ShoppingItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, shoppingBucket, item.ID, item)
	})
}

// GetShoppingItem retrieves a shopping list entry by ID.
func (b *BoltDB) GetShoppingItem(id string) (*ShoppingItem, error) {
	var item ShoppingItem
	if err := b.getJSON(shoppingBucket, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListShoppingItems returns all shopping list entries.
func (b *BoltDB) ListShoppingItems() ([]*ShoppingItem, error) {
	items := make([]*ShoppingItem, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(shoppingBucket)).ForEach(func(k, v []byte) error {
			var item ShoppingItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling shopping item: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteShoppingItem removes a shopping list entry.
func (b *BoltDB) DeleteShoppingItem(id string) error {
	return b.delete(shoppingBucket, id)
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
