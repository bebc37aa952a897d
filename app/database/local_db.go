package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by BlobStore.Get for unknown keys
var ErrNotFound = errors.New("key not found")

// KVBlob is one named JSON document
type KVBlob struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Data      string    `gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVBlob) TableName() string {
	return "kv_blobs"
}

// BlobStore persists opaque JSON documents by key
type BlobStore struct {
	db *gorm.DB
}

// NewBlobStore wraps an open, migrated connection
func NewBlobStore(conn *gorm.DB) *BlobStore {
	return &BlobStore{db: conn}
}

// Get returns the document stored under key
func (s *BlobStore) Get(key string) ([]byte, error) {
	var blob KVBlob
	err := s.db.Where("key = ?", key).Take(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(blob.Data), nil
}

// Put replaces the document stored under key
func (s *BlobStore) Put(key string, data []byte) error {
	blob := KVBlob{Key: key, Data: string(data)}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting an unknown key is not an error
func (s *BlobStore) Delete(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&KVBlob{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order
func (s *BlobStore) Keys() ([]string, error) {
	var keys []string
	if err := s.db.Model(&KVBlob{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Transaction runs fn against a store bound to a single transaction
func (s *BlobStore) Transaction(fn func(tx *BlobStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&BlobStore{db: tx})
	})
}
