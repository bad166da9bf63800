package repository

import (
	"context"
	"database/sql"
	"fmt"

	"FlatPull/internal/domain/models"
	domainrepo "FlatPull/internal/domain/repository"
)

const barsTable = "minute_bars"

// BarSchema returns the DDL for the mirror table.
func BarSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	asset_type LowCardinality(String),
	ticker     LowCardinality(String),
	ts         DateTime64(9, 'America/New_York'),
	open       Float64,
	close      Float64,
	low        Float64,
	high       Float64,
	volume     Float64
) ENGINE = ReplacingMergeTree
ORDER BY (asset_type, ticker, ts)`, database, barsTable),
	}
}

// ClickHouseBarMirror copies normalized bars into ClickHouse. Re-inserting a
// day is harmless: the ReplacingMergeTree collapses duplicates by key.
type ClickHouseBarMirror struct {
	db    *sql.DB
	table string
}

func NewClickHouseBarMirror(db *sql.DB, database string) domainrepo.BarMirror {
	return &ClickHouseBarMirror{db: db, table: database + "." + barsTable}
}

func (m *ClickHouseBarMirror) InsertBars(ctx context.Context, asset models.AssetType, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (asset_type, ticker, ts, open, close, low, high, volume)", m.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, string(asset), b.Ticker, b.Timestamp, b.Open, b.Close, b.Low, b.High, b.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Close leaves the pool to its owner.
func (m *ClickHouseBarMirror) Close() error { return nil }
