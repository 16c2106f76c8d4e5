package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/utils"

	_ "github.com/lib/pq"
)

// PostgresWriter mirrors persisted batches into PostgreSQL
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter creates a new PostgresWriter and pings the DB
func NewPostgresWriter(ctx context.Context, connStr string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresWriter{db: db, logger: logger}, nil
}

// CreateTables creates the record and batch tables if they don't exist
func (w *PostgresWriter) CreateTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS catalog_batches (
		run_id           TEXT        NOT NULL,
		batch_number     INTEGER     NOT NULL,
		records_in_batch INTEGER     NOT NULL,
		cumulative_count INTEGER     NOT NULL,
		source           TEXT,
		created_at       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, batch_number)
	);

	CREATE TABLE IF NOT EXISTS catalog_records (
		id           BIGINT PRIMARY KEY,
		run_id       TEXT    NOT NULL,
		batch_number INTEGER NOT NULL,
		name         TEXT,
		category     TEXT,
		description  TEXT,
		dimensions   TEXT,
		price_raw    TEXT,
		price_value  DOUBLE PRECISION,
		updated      TEXT,
		extracted_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_records_category ON catalog_records (category);
	CREATE INDEX IF NOT EXISTS idx_catalog_records_price    ON catalog_records (price_value);
	`
	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	w.logger.Info("Tables 'catalog_batches' and 'catalog_records' are ready")
	return nil
}

// SaveBatch inserts one batch and its records in a single transaction,
// skipping rows that already exist so a replayed batch is harmless.
func (w *PostgresWriter) SaveBatch(ctx context.Context, batch *models.Batch) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	md := batch.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_batches (run_id, batch_number, records_in_batch, cumulative_count, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, batch_number) DO NOTHING
	`, md.RunID, md.BatchNumber, md.RecordsInBatch, md.CumulativeCount, md.SourceIdentifier, md.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert batch row: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_records (id, run_id, batch_number, name, category, description, dimensions, price_raw, price_value, updated, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range batch.Records {
		res, execErr := stmt.ExecContext(ctx,
			r.ID,
			md.RunID,
			md.BatchNumber,
			r.Name,
			r.Category,
			r.Description,
			r.Dimensions,
			r.PriceRaw,
			r.PriceValue,
			r.Updated,
			r.ExtractedAt,
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert record %d: %w", r.ID, execErr)
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Debug("Mirrored batch %d: %d/%d records inserted into PostgreSQL", md.BatchNumber, inserted, len(batch.Records))
	return nil
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}
