package db

import (
	"context"
	"database/sql"
	"fmt"

	"orderrelay/internal/models"
)

// ClaimStore - журнал взятий в таблице order_claims. Реализует claims.Store.
type ClaimStore struct {
	conn *sql.DB
}

func NewClaimStore(conn *sql.DB) *ClaimStore {
	return &ClaimStore{conn: conn}
}

// Reserve занимает order_id, только если он еще не занят.
func (s *ClaimStore) Reserve(ctx context.Context, rec models.ClaimRecord) (bool, error) {
	const query = `
        INSERT INTO order_reservations (order_id, chat_id, message_id, claimant_id, reserved_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (order_id) DO NOTHING`

	res, err := s.conn.ExecContext(ctx, query,
		rec.OrderID, rec.ChatID, rec.MessageID, rec.ClaimantID, rec.ClaimedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка резервирования заказа %s: %w", rec.OrderID, err)
	}
	return inserted(res, rec.OrderID)
}

func (s *ClaimStore) Release(ctx context.Context, orderID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM order_reservations WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("ошибка снятия резерва заказа %s: %w", orderID, err)
	}
	return nil
}

// Record вставляет запись о взятии, только если у сообщения ее еще нет.
func (s *ClaimStore) Record(ctx context.Context, rec models.ClaimRecord) (bool, error) {
	const query = `
        INSERT INTO order_claims (chat_id, message_id, order_id, claimant_id, claimant_name, claimed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (chat_id, message_id) DO NOTHING`

	res, err := s.conn.ExecContext(ctx, query,
		rec.ChatID, rec.MessageID, rec.OrderID, rec.ClaimantID, rec.ClaimantName, rec.ClaimedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка записи взятия заказа %s: %w", rec.OrderID, err)
	}
	return inserted(res, rec.OrderID)
}

func inserted(res sql.Result, orderID string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка чтения результата записи заказа %s: %w", orderID, err)
	}
	return n == 1, nil
}

func (s *ClaimStore) List(ctx context.Context) ([]models.ClaimRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
        SELECT order_id, chat_id, message_id, claimant_id, claimant_name, claimed_at
        FROM order_claims
        ORDER BY claimed_at, order_id, chat_id, message_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала взятий: %w", err)
	}
	defer rows.Close()

	var out []models.ClaimRecord
	for rows.Next() {
		var rec models.ClaimRecord
		if err := rows.Scan(&rec.OrderID, &rec.ChatID, &rec.MessageID, &rec.ClaimantID, &rec.ClaimantName, &rec.ClaimedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки журнала: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по журналу: %w", err)
	}
	return out, nil
}
