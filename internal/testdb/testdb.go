// Package testdb opens throwaway SQLite databases carrying the same tables as
// the Postgres migrations, for repository and service tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/ecoswap/ecoswap-api/pkg/db/models"
	"github.com/ecoswap/ecoswap-api/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  avatar TEXT,
  location TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  condition TEXT NOT NULL,
  images TEXT NOT NULL,
  location TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Available',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE exchanges (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  requester_id TEXT NOT NULL,
  type TEXT NOT NULL,
  exchange_item_details TEXT,
  message TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  meetup_location TEXT,
  meetup_time DATETIME,
  owner_feedback_rating INTEGER,
  owner_feedback_comment TEXT,
  owner_feedback_submitted_at DATETIME,
  requester_feedback_rating INTEGER,
  requester_feedback_comment TEXT,
  requester_feedback_submitted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX exchanges_active_product_requester_uidx
  ON exchanges (product_id, requester_id)
  WHERE status IN ('Pending', 'Accepted');`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  exchange_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with the schema applied. A
// single connection is used so work outside an open transaction blocks
// instead of racing it.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// MustCreateUser inserts a user with a unique email.
func MustCreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	location := "Springfield"
	user := &models.User{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("user_%s@example.com", uuid.NewString()),
		Name:     name,
		Location: &location,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// MustCreateProduct inserts an available listing owned by ownerID.
func MustCreateProduct(t testing.TB, db *gorm.DB, ownerID uuid.UUID, title string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: title + " in working order",
		Category:    enums.ProductCategoryFurniture,
		Condition:   enums.ProductConditionGood,
		Images:      pq.StringArray{"https://img.example.com/" + uuid.NewString() + ".jpg"},
		Location:    "Springfield",
		Status:      enums.ProductStatusAvailable,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
