package repository

import (
	"context"
	"database/sql"
	"os"

	"github.com/rs/zerolog"

	"retail-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "repository").Logger()

// ImportLogRepository keeps the audit trail of CSV uploads in MySQL.
type ImportLogRepository struct {
	db *sql.DB
}

func NewImportLogRepository(db *sql.DB) *ImportLogRepository {
	return &ImportLogRepository{db}
}

func (r *ImportLogRepository) Record(ctx context.Context, run *entity.ImportRun) (*entity.ImportRun, error) {
	query := `INSERT INTO import_runs (file_name, processed, inserted, error_count, new_fields, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, run.FileName, run.Processed, run.Inserted, run.ErrorCount, run.NewFields, run.Status, run.CreatedAt)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	run.ID = id
	return run, nil
}

func (r *ImportLogRepository) Recent(ctx context.Context, limit int) ([]entity.ImportRun, error) {
	query := `SELECT id, file_name, processed, inserted, error_count, new_fields, status, created_at FROM import_runs ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []entity.ImportRun{}
	for rows.Next() {
		var run entity.ImportRun
		err := rows.Scan(&run.ID, &run.FileName, &run.Processed, &run.Inserted, &run.ErrorCount, &run.NewFields, &run.Status, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
