package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"refurbot/core/logger"
	"log/slog"
)

// Connect opens the SQLite store file, applies pragmas, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	Normalize(&cfg)

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db dir create: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	sqlxDB, err := sqlx.ConnectContext(ctx, "sqlite", cfg.Path)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", "sqlite"),
			slog.String("path", cfg.Path),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	// One shared connection avoids SQLITE_BUSY between concurrent webhook
	// deliveries and the backup copy path.
	sqlxDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlxDB.SetMaxIdleConns(cfg.MaxConnections)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeoutMS),
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, pErr := sqlxDB.ExecContext(ctx, p); pErr != nil {
			_ = sqlxDB.Close()
			logger.DB.Error("db pragma failed",
				slog.String("event", "db.pragma"),
				slog.String("path", cfg.Path),
				slog.String("pragma", p),
				slog.String("err", pErr.Error()),
			)
			return nil, fmt.Errorf("db pragma: %w", pErr)
		}
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "sqlite"),
		slog.String("path", cfg.Path),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}
