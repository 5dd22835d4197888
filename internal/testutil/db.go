// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

const BankID = "bamx-test"

// NewDB opens a private in-memory SQLite database with the shared models
// migrated plus any extra models given.
func NewDB(t *testing.T, extra ...interface{}) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes access.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.MigrateShared(db); err != nil {
		t.Fatalf("migrate shared: %v", err)
	}
	if err := database.MigrateModels(db, extra); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	return db
}

// NewRegistry returns a registry holding the test bank.
func NewRegistry(municipalities ...string) *tenant.Registry {
	if len(municipalities) == 0 {
		municipalities = []string{"Zapopan", "Tlaquepaque", "Tonalá"}
	}
	r := tenant.NewRegistry()
	r.Register(&tenant.BankConfig{BankID: BankID, Name: "Test Bank", Municipalities: municipalities})
	return r
}

// CreateUser inserts a user of the test bank.
func CreateUser(t *testing.T, db *gorm.DB, role, fullName, community string) models.User {
	t.Helper()

	u := models.User{
		BankID:     BankID,
		Email:      uuid.NewString() + "@example.org",
		Password:   "x",
		Role:       role,
		FullName:   fullName,
		Community:  community,
		FamilySize: 4,
		Status:     models.StatusActive,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
