package models

import "time"

// ClaimRecord - запись журнала о том, кто забрал заказ.
type ClaimRecord struct {
	OrderID      string    `json:"order_id"`
	ChatID       int64     `json:"chat_id"`
	MessageID    int       `json:"message_id"`
	ClaimantID   int64     `json:"claimant_id"`
	ClaimantName string    `json:"claimant_name"`
	ClaimedAt    time.Time `json:"claimed_at"`
}
