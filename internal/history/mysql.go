package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"ctrf/internal/config"
	"ctrf/internal/report"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ctrf_runs (
		report_id VARCHAR(64) NOT NULL PRIMARY KEY,
		tool VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		workers INT NOT NULL,
		tests INT NOT NULL,
		passed INT NOT NULL,
		failed INT NOT NULL,
		skipped INT NOT NULL,
		pending INT NOT NULL,
		other INT NOT NULL,
		errors INT NOT NULL,
		start_ms BIGINT NOT NULL,
		stop_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ctrf_tests (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		report_id VARCHAR(64) NOT NULL,
		test_id VARCHAR(1024) NOT NULL,
		name VARCHAR(1024) NOT NULL,
		status VARCHAR(16) NOT NULL,
		raw_status VARCHAR(32) NOT NULL,
		duration_ms BIGINT NOT NULL,
		suite VARCHAR(1024) NOT NULL,
		tags TEXT NOT NULL,
		file_path VARCHAR(1024) NOT NULL,
		browser VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		INDEX idx_ctrf_tests_report (report_id)
	)`,
}

const insertRun = `INSERT INTO ctrf_runs
	(report_id, tool, created_at, workers, tests, passed, failed, skipped, pending, other, errors, start_ms, stop_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertTest = `INSERT INTO ctrf_tests
	(report_id, test_id, name, status, raw_status, duration_ms, suite, tags, file_path, browser, message)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// MySQLPublisher writes reports into a MySQL database
type MySQLPublisher struct {
	config *config.Config
	logger *zap.Logger
}

// NewMySQLPublisher creates a new MySQLPublisher
func NewMySQLPublisher(cfg *config.Config, logger *zap.Logger) *MySQLPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLPublisher{config: cfg, logger: logger}
}

// Publish stores the run and every test of rep in one transaction. The
// database and its tables are created when missing.
func (p *MySQLPublisher) Publish(ctx context.Context, rep *report.Report, meta report.Meta) error {
	if meta.ReportID == "" {
		return fmt.Errorf("publish report: missing report id")
	}
	run, tests, err := BuildRows(rep, meta)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	if err := p.ensureDatabase(ctx); err != nil {
		return err
	}

	db, err := sql.Open("mysql", p.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertRun,
		run.ReportID, run.Tool, run.CreatedAt, run.Workers,
		run.Tests, run.Passed, run.Failed, run.Skipped, run.Pending, run.Other, run.Errors,
		run.Start, run.Stop,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ReportID, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertTest)
	if err != nil {
		return fmt.Errorf("failed to prepare test insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range tests {
		if _, err := stmt.ExecContext(ctx,
			row.ReportID, row.TestID, row.Name, row.Status, row.RawStatus, row.Duration,
			row.Suite, row.Tags, row.FilePath, row.Browser, row.Message,
		); err != nil {
			return fmt.Errorf("failed to insert test %s: %w", row.TestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report %s: %w", run.ReportID, err)
	}
	p.logger.Info("published report",
		zap.String("report_id", run.ReportID),
		zap.String("database", p.config.Database.Name),
		zap.Int("tests", len(tests)))
	return nil
}

// ensureDatabase creates the history database if it does not exist
func (p *MySQLPublisher) ensureDatabase(ctx context.Context) error {
	name := p.config.Database.Name
	if !isValidDatabaseName(name) {
		return fmt.Errorf("invalid database name: %s", name)
	}

	// Connect to MySQL server (without specifying database)
	db, err := sql.Open("mysql", p.config.Database.ServerDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database server: %w", err)
	}

	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	p.logger.Debug("created history database", zap.String("database", name))
	return nil
}

// isValidDatabaseName rejects names that could escape the quoted identifier
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	invalid := []string{"`", "'", "\"", ";", "--", "/*", "*/", "\\"}
	for _, s := range invalid {
		if strings.Contains(name, s) {
			return false
		}
	}
	return true
}
