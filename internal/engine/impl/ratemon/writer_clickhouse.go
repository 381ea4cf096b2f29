package ratemon

import (
	"context"
	"fmt"
	"log"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS cluster_metrics (
    Timestamp DateTime,
    Monitor   String,
    Prefix    String,
    Depth     UInt8,
    Value     Int32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Monitor, Prefix, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter creates a new ClickHouse writer and ensures the
// cluster_metrics table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts the snapshot's clusters into the cluster_metrics table.
// Quiet clusters holding a zero value are skipped; the table records
// activity, not table shape.
func (w *ClickHouseWriter) Write(payload interface{}, timestamp, monitor string) error {
	snap, ok := payload.(MonitorSnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouse Writer: expected MonitorSnapshot, got %T", payload)
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO cluster_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	snapshotTime, _ := time.Parse("2006-01-02_15-04-05", timestamp)
	clusterCount := 0

	for _, c := range snap.Clusters {
		if c.Value == 0 {
			continue
		}
		clusterCount++
		err = batch.Append(
			snapshotTime,
			snap.Name,
			c.Prefix,
			uint8(c.Depth),
			c.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to append cluster to batch: %w", err)
		}
	}

	if clusterCount == 0 {
		return nil // Nothing to write
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d clusters to ClickHouse for monitor '%s'", clusterCount, monitor)
	return nil
}
