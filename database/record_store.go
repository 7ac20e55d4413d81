// database/record_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/projectscraper/models"
)

const schemaRuns = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id               CHAR(36)     NOT NULL PRIMARY KEY,
	started_at       DATETIME     NOT NULL,
	finished_at      DATETIME     NOT NULL,
	sites            INT          NOT NULL,
	records          INT          NOT NULL,
	live_records     INT          NOT NULL,
	fallback_records INT          NOT NULL,
	average_quality  DOUBLE       NOT NULL,
	output_file      VARCHAR(512) NOT NULL,
	result           VARCHAR(16)  NOT NULL,
	error_message    TEXT         NULL
)`

const schemaRecords = `
CREATE TABLE IF NOT EXISTS project_records (
	id                BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id            CHAR(36)      NOT NULL,
	project_name      VARCHAR(512)  NOT NULL,
	project_location  VARCHAR(255)  NOT NULL,
	project_type      VARCHAR(128)  NOT NULL,
	contact_name      VARCHAR(255)  NOT NULL,
	mobile_number     VARCHAR(64)   NOT NULL,
	source_url        VARCHAR(1024) NOT NULL,
	extraction_date   DATETIME      NOT NULL,
	quality_score     INT           NOT NULL,
	extraction_status VARCHAR(32)   NOT NULL,
	extraction_method VARCHAR(32)   NOT NULL,
	fallback_notes    TEXT          NULL,
	INDEX idx_project_records_run (run_id),
	CONSTRAINT fk_project_records_run FOREIGN KEY (run_id) REFERENCES scrape_runs (id)
)`

const insertRun = `
INSERT INTO scrape_runs (
	id, started_at, finished_at, sites, records, live_records,
	fallback_records, average_quality, output_file, result, error_message
) VALUES (
	:id, :started_at, :finished_at, :sites, :records, :live_records,
	:fallback_records, :average_quality, :output_file, :result, :error_message
)`

const insertRecord = `
INSERT INTO project_records (
	run_id, project_name, project_location, project_type, contact_name,
	mobile_number, source_url, extraction_date, quality_score,
	extraction_status, extraction_method, fallback_notes
) VALUES (
	:run_id, :project_name, :project_location, :project_type, :contact_name,
	:mobile_number, :source_url, :extraction_date, :quality_score,
	:extraction_status, :extraction_method, :fallback_notes
)`

const selectLastRun = `
SELECT id, started_at, finished_at, sites, records, live_records,
	fallback_records, average_quality, output_file, result,
	COALESCE(error_message, '') AS error_message
FROM scrape_runs
ORDER BY started_at DESC
LIMIT 1`

// projectRow ties a record to its run for insertion.
type projectRow struct {
	RunID string `db:"run_id"`
	models.NormalizedRecord
}

// RecordStore keeps the run history in MySQL.
type RecordStore struct {
	db *sqlx.DB
}

func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

// EnsureSchema creates the history tables when missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{schemaRuns, schemaRecords} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run and its records in one transaction.
func (s *RecordStore) SaveRun(ctx context.Context, run models.RunSummary, records []models.NormalizedRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for run %s: %w", run.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.NamedExecContext(ctx, insertRun, run); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	for _, r := range records {
		if _, err := tx.NamedExecContext(ctx, insertRecord, projectRow{RunID: run.ID, NormalizedRecord: r}); err != nil {
			return fmt.Errorf("failed to insert record %s for run %s: %w", r.SourceURL, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recent run, or nil when none was stored.
func (s *RecordStore) LastRun(ctx context.Context) (*models.RunSummary, error) {
	var run models.RunSummary
	if err := s.db.GetContext(ctx, &run, selectLastRun); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load last run: %w", err)
	}
	return &run, nil
}
