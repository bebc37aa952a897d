package database

import (
	"path/filepath"
	"testing"

	"EOrders/app/config"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type BlobStoreSuite struct {
	suite.Suite
	conn  *gorm.DB
	store *BlobStore
}

func (s *BlobStoreSuite) SetupTest() {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), gormConfig())
	s.Require().NoError(err)
	sqlDB, err := conn.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(RunMigrations(conn))

	s.conn = conn
	s.store = NewBlobStore(conn)
}

func (s *BlobStoreSuite) TearDownTest() {
	sqlDB, err := s.conn.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (s *BlobStoreSuite) TestGetMissing() {
	_, err := s.store.Get("table_orders")
	s.ErrorIs(err, ErrNotFound)
}

func (s *BlobStoreSuite) TestPutGetOverwrite() {
	s.Require().NoError(s.store.Put("printer_config", []byte(`{"type":"wifi"}`)))
	s.Require().NoError(s.store.Put("printer_config", []byte(`{"type":"bluetooth"}`)))

	data, err := s.store.Get("printer_config")
	s.Require().NoError(err)
	s.JSONEq(`{"type":"bluetooth"}`, string(data))

	keys, err := s.store.Keys()
	s.Require().NoError(err)
	s.Equal([]string{"printer_config"}, keys)
}

func (s *BlobStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Put("shift_start", []byte(`"2026-03-14T08:00:00Z"`)))
	s.Require().NoError(s.store.Delete("shift_start"))
	s.Require().NoError(s.store.Delete("shift_start"))

	_, err := s.store.Get("shift_start")
	s.ErrorIs(err, ErrNotFound)
}

func (s *BlobStoreSuite) TestKeysSorted() {
	for _, k := range []string{"tables", "products", "order_history"} {
		s.Require().NoError(s.store.Put(k, []byte("[]")))
	}
	keys, err := s.store.Keys()
	s.Require().NoError(err)
	s.Equal([]string{"order_history", "products", "tables"}, keys)
}

func (s *BlobStoreSuite) TestTransactionRollback() {
	err := s.store.Transaction(func(tx *BlobStore) error {
		if err := tx.Put("products", []byte("[]")); err != nil {
			return err
		}
		return assert.AnError
	})
	s.ErrorIs(err, assert.AnError)

	_, err = s.store.Get("products")
	s.ErrorIs(err, ErrNotFound)
}

func TestBlobStoreSuite(t *testing.T) {
	suite.Run(t, new(BlobStoreSuite))
}

func TestOpenSQLiteFile(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(config.StorageConfig{Driver: "sqlite", Path: "nested/test.db"}, dir)
	require.NoError(t, err)
	defer func() {
		sqlDB, _ := conn.DB()
		sqlDB.Close()
	}()

	assert.FileExists(t, filepath.Join(dir, "nested", "test.db"))
	require.NoError(t, NewBlobStore(conn).Put("tables", []byte("[]")))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.StorageConfig{Driver: "mongodb"}, t.TempDir())
	assert.Error(t, err)
}

func TestBuildDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg := config.StorageConfig{Host: "db", Port: 5433, Username: "u", Password: "p", Database: "eorders", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=eorders sslmode=disable", buildDSN(cfg))

	cfg.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", buildDSN(cfg))

	t.Setenv("DATABASE_URL", "postgres://env")
	assert.Equal(t, "postgres://env", buildDSN(cfg))
}
