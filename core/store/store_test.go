package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

func mustTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "tmp.db"), Pepper: "pepper", DBURL: ""}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustCreateUser(t *testing.T, db *sql.DB, username string, roles []string) int64 {
	t.Helper()
	id, err := NewUsersStore(db).Create(context.Background(), &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "h",
		Salt:         "s",
		Active:       true,
	}, roles)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func mustCreateVendor(t *testing.T, db *sql.DB, name, code string) int64 {
	t.Helper()
	id, err := NewVendorsStore(db).Create(context.Background(), &Vendor{Name: name, Code: code, Active: true})
	if err != nil {
		t.Fatalf("create vendor %s: %v", name, err)
	}
	return id
}

func mustCreateProduct(t *testing.T, db *sql.DB, vendorID int64, name, model string) int64 {
	t.Helper()
	id, err := NewProductsStore(db).Create(context.Background(), &Product{VendorID: vendorID, Name: name, Model: model, Active: true})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return id
}

func mustCreateIO(t *testing.T, db *sql.DB, ioID int64, name string) int64 {
	t.Helper()
	id, err := NewIOUniversalStore(db).Create(context.Background(), &IOUniversal{IOID: ioID, Name: name, DataType: "uint16"})
	if err != nil {
		t.Fatalf("create io %s: %v", name, err)
	}
	return id
}
