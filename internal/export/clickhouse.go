package export

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tenantsim/internal/config"
	"tenantsim/internal/schema"
)

// ClickHouseSink loads the generated streams into ClickHouse tables so
// downstream detections can be replayed against them with real SQL.
type ClickHouseSink struct {
	conn   driver.Conn
	cfg    config.StorageConfig
	logger *slog.Logger
}

// NewClickHouseSink connects to ClickHouse and verifies the connection.
func NewClickHouseSink(cfg config.StorageConfig, logger *slog.Logger) (*ClickHouseSink, error) {
	opts := &clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionZSTD,
		},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	if cfg.TLSEnabled {
		opts.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, &SinkError{Op: "Open", Err: fmt.Errorf("%w: %v", ErrConnectionFailed, err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, &SinkError{Op: "Ping", Err: fmt.Errorf("%w: %v", ErrConnectionFailed, err)}
	}

	logger.Info("clickhouse sink connected",
		"hosts", cfg.Hosts,
		"database", cfg.Database,
	)

	return &ClickHouseSink{conn: conn, cfg: cfg, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

func (s *ClickHouseSink) table(name string) string {
	return s.cfg.TablePrefix + name
}

// EnsureTables creates the three stream tables if they do not exist.
func (s *ClickHouseSink) EnsureTables(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			TimeGenerated DateTime,
			OperationName LowCardinality(String),
			InitiatedBy String,
			TargetProperties String
		) ENGINE = MergeTree()
		ORDER BY TimeGenerated`, s.table("audit_logs")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			TimeGenerated DateTime,
			UserPrincipalName String,
			OperationName LowCardinality(String),
			SiteUrl String,
			FileName String,
			TargetFolder String,
			ClientAppUsed LowCardinality(String),
			IPAddress String,
			IsManagedDevice UInt8
		) ENGINE = MergeTree()
		ORDER BY TimeGenerated`, s.table("office_activity")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			TimeGenerated DateTime,
			UserPrincipalName String,
			AppDisplayName LowCardinality(String),
			ResultType Int32,
			ResultDescription String,
			IPAddress String,
			Location String,
			DeviceDetail String
		) ENGINE = MergeTree()
		ORDER BY TimeGenerated`, s.table("signin_logs")),
	}

	for _, query := range ddl {
		if err := s.conn.Exec(ctx, query); err != nil {
			return &SinkError{Op: "EnsureTables", Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
		}
	}
	return nil
}

// InsertAudit batch inserts the audit stream.
func (s *ClickHouseSink) InsertAudit(ctx context.Context, events []schema.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table("audit_logs")))
	if err != nil {
		return &SinkError{Op: "InsertAudit", Stream: "audit", Err: err}
	}

	for _, e := range events {
		if err := batch.Append(
			e.TimeGenerated,
			e.OperationName,
			e.InitiatedBy,
			e.TargetProperties,
		); err != nil {
			return &SinkError{Op: "InsertAudit", Stream: "audit", Err: err}
		}
	}

	if err := batch.Send(); err != nil {
		return &SinkError{Op: "InsertAudit", Stream: "audit", Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	s.logger.Debug("inserted audit rows", "count", len(events))
	return nil
}

// InsertActivity batch inserts the office-activity stream.
func (s *ClickHouseSink) InsertActivity(ctx context.Context, events []schema.OfficeActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table("office_activity")))
	if err != nil {
		return &SinkError{Op: "InsertActivity", Stream: "officeactivity", Err: err}
	}

	for _, e := range events {
		managed := uint8(0)
		if e.IsManagedDevice {
			managed = 1
		}
		if err := batch.Append(
			e.TimeGenerated,
			e.UserPrincipalName,
			e.OperationName,
			e.SiteUrl,
			e.FileName,
			e.TargetFolder,
			e.ClientAppUsed,
			e.IPAddress,
			managed,
		); err != nil {
			return &SinkError{Op: "InsertActivity", Stream: "officeactivity", Err: err}
		}
	}

	if err := batch.Send(); err != nil {
		return &SinkError{Op: "InsertActivity", Stream: "officeactivity", Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	s.logger.Debug("inserted activity rows", "count", len(events))
	return nil
}

// InsertSignIns batch inserts the sign-in stream.
func (s *ClickHouseSink) InsertSignIns(ctx context.Context, events []schema.SignInEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table("signin_logs")))
	if err != nil {
		return &SinkError{Op: "InsertSignIns", Stream: "signin", Err: err}
	}

	for _, e := range events {
		if err := batch.Append(
			e.TimeGenerated,
			e.UserPrincipalName,
			e.AppDisplayName,
			int32(e.ResultType),
			e.ResultDescription,
			e.IPAddress,
			e.Location,
			e.DeviceDetail.Encode(),
		); err != nil {
			return &SinkError{Op: "InsertSignIns", Stream: "signin", Err: err}
		}
	}

	if err := batch.Send(); err != nil {
		return &SinkError{Op: "InsertSignIns", Stream: "signin", Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	s.logger.Debug("inserted sign-in rows", "count", len(events))
	return nil
}
