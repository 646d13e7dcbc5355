// Package clickhouse persists lookup history. The engine works
// without it; wiring is optional and failures never block a lookup.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config holds ClickHouse connection settings
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Connection wraps the ClickHouse connection
type Connection struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewConnection opens and verifies a ClickHouse connection
func NewConnection(cfg Config, logger *slog.Logger) (*Connection, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	logger.Info("connected to ClickHouse",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &Connection{conn: conn, logger: logger}, nil
}

// Conn returns the underlying driver connection
func (c *Connection) Conn() driver.Conn {
	return c.conn
}

// Ping tests the connection
func (c *Connection) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the connection
func (c *Connection) Close() error {
	return c.conn.Close()
}
