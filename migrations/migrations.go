package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// AutoMigrateImportRuns creates the import_runs table if it does not exist.
func AutoMigrateImportRuns(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS import_runs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			file_name VARCHAR(255) NOT NULL,
			processed INT NOT NULL,
			inserted INT NOT NULL,
			error_count INT NOT NULL,
			new_fields TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at DATETIME(3) NOT NULL,
			INDEX idx_import_runs_created_at (created_at)
		);
	`
	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		// Retry creating the table
		time.Sleep(1 * time.Second)
		_, err = db.Exec(query)
	}
	if err != nil {
		return fmt.Errorf("create import_runs: %w", err)
	}
	return nil
}
