package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_refresh_tokens_table.sql",
		"00003_create_categories_table.sql",
		"00004_create_products_table.sql",
		"00005_create_addresses_table.sql",
		"00006_create_carts_table.sql",
		"00007_create_cart_items_table.sql",
		"00008_create_orders_table.sql",
		"00009_create_order_items_table.sql",
		"00010_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}
		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}
		if !strings.Contains(contentStr, "-- +goose StatementBegin") {
			t.Errorf("Migration file %s missing '-- +goose StatementBegin' directive", file.Name())
		}
		if !strings.Contains(contentStr, "-- +goose StatementEnd") {
			t.Errorf("Migration file %s missing '-- +goose StatementEnd' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	migrationsDir := "../../migrations"

	expectedTables := map[string]string{
		"users":          "00001_create_users_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"categories":     "00003_create_categories_table.sql",
		"products":       "00004_create_products_table.sql",
		"addresses":      "00005_create_addresses_table.sql",
		"carts":          "00006_create_carts_table.sql",
		"cart_items":     "00007_create_cart_items_table.sql",
		"orders":         "00008_create_orders_table.sql",
		"order_items":    "00009_create_order_items_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		path := filepath.Join(migrationsDir, migrationFile)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)

		createTableStmt := "CREATE TABLE IF NOT EXISTS " + tableName
		if !strings.Contains(contentStr, createTableStmt) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		dropTableStmt := "DROP TABLE IF EXISTS " + tableName
		if !strings.Contains(contentStr, dropTableStmt) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestStockAndTaxConstraintsPresent(t *testing.T) {
	migrationsDir := "../../migrations"

	products, err := os.ReadFile(filepath.Join(migrationsDir, "00004_create_products_table.sql"))
	if err != nil {
		t.Fatalf("Failed to read products migration: %v", err)
	}
	if !strings.Contains(string(products), "CHECK (quantity >= 0)") {
		t.Error("products migration missing the non-negative quantity check")
	}

	categories, err := os.ReadFile(filepath.Join(migrationsDir, "00003_create_categories_table.sql"))
	if err != nil {
		t.Fatalf("Failed to read categories migration: %v", err)
	}
	if !strings.Contains(string(categories), "CHECK (tax_rate >= 0)") {
		t.Error("categories migration missing the non-negative tax rate check")
	}

	addresses, err := os.ReadFile(filepath.Join(migrationsDir, "00005_create_addresses_table.sql"))
	if err != nil {
		t.Fatalf("Failed to read addresses migration: %v", err)
	}
	if !strings.Contains(string(addresses), "WHERE is_deleted = FALSE") {
		t.Error("addresses migration missing the single active address index")
	}
}
