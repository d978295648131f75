// Файл: internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"orderrelay/internal/logger"
)

const createTablesSQL = `
        CREATE TABLE IF NOT EXISTS order_claims (
            chat_id BIGINT NOT NULL,
            message_id INTEGER NOT NULL,
            order_id TEXT NOT NULL,
            claimant_id BIGINT NOT NULL,
            claimant_name TEXT NOT NULL DEFAULT '',
            claimed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            PRIMARY KEY (chat_id, message_id)
        );
        CREATE TABLE IF NOT EXISTS order_reservations (
            order_id TEXT PRIMARY KEY,
            chat_id BIGINT NOT NULL,
            message_id INTEGER NOT NULL,
            claimant_id BIGINT NOT NULL,
            reserved_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
    `

const createIndexesSQL = `
        CREATE INDEX IF NOT EXISTS idx_order_claims_claimed_at ON order_claims(claimed_at);
        CREATE INDEX IF NOT EXISTS idx_order_claims_order_id ON order_claims(order_id);
        CREATE INDEX IF NOT EXISTS idx_order_claims_claimant_id ON order_claims(claimant_id);
    `

// Open подключается к PostgreSQL и создает таблицы журнала взятий.
func Open(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL не установлена")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DATABASE_URL: %w", err)
	}

	conn, err := sql.Open("postgres", parsedURL.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %w", err)
	}
	logger.Log.Info("Успешное подключение к базе данных.", zap.String("host", parsedURL.Hostname()))

	if err := migrate(ctx, conn); err != nil {
		closeQuietly(conn)
		return nil, err
	}
	return conn, nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.Warn("Ошибка закрытия соединения с базой данных", zap.Error(err))
	}
}

func migrate(ctx context.Context, conn *sql.DB) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Log.Warn("Откат транзакции из-за ошибки", zap.Error(err))
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Log.Error("Ошибка отката транзакции", zap.Error(rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции создания таблиц: %w", err)
	}

	// Индексы создаются по одному, ошибка одного не мешает остальным.
	for _, stmt := range strings.Split(strings.TrimSpace(createIndexesSQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, errIdx := conn.ExecContext(ctx, stmt); errIdx != nil {
			logger.Log.Warn("Ошибка при создании индекса", zap.String("stmt", stmt), zap.Error(errIdx))
		}
	}

	logger.Log.Info("Инициализация базы данных успешно завершена.")
	return nil
}
