package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"EOrders/app/database"

	"go.uber.org/zap"
)

// BaseService provides JSON blob access shared by the persistent services
type BaseService struct {
	blobs *database.BlobStore
	log   *zap.Logger
}

// NewBaseService creates a new base service instance
func NewBaseService(blobs *database.BlobStore, log *zap.Logger) *BaseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BaseService{blobs: blobs, log: log}
}

// EnsureDB checks if storage is initialized and returns an error if not
func (b *BaseService) EnsureDB() error {
	if b.blobs == nil {
		return fmt.Errorf("database not initialized")
	}
	return nil
}

// loadJSON decodes the blob under key into dest. It reports false when the key is
// missing, unreadable or corrupt; dest is then left untouched and the caller keeps
// its default.
func (b *BaseService) loadJSON(key string, dest interface{}) bool {
	if err := b.EnsureDB(); err != nil {
		return false
	}
	data, err := b.blobs.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return false
	}
	if err != nil {
		b.log.Warn("Could not read stored data, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		b.log.Warn("Stored data is corrupt, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// saveJSON replaces the blob under key
func (b *BaseService) saveJSON(key string, v interface{}) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := b.blobs.Put(key, data); err != nil {
		b.log.Error("Could not persist data", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (b *BaseService) deleteKey(key string) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.blobs.Delete(key)
}
