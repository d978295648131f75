// Package claims ведет журнал взятых заказов и, в строгом режиме, не дает забрать
// один order_id дважды даже при одновременных нажатиях.
package claims

import (
	"context"
	"sort"
	"sync"

	"orderrelay/internal/models"
)

// Store - журнал взятий и резервы order_id строгого режима.
type Store interface {
	// Reserve занимает order_id до редактирования сообщения. false - заказ уже занят.
	Reserve(ctx context.Context, rec models.ClaimRecord) (bool, error)
	// Release снимает резерв, если сообщение так и не удалось обновить.
	Release(ctx context.Context, orderID string) error
	// Record записывает взятие сообщения. Ключ - (chat_id, message_id): один order_id
	// может быть опубликован несколько раз. false - у сообщения уже есть запись.
	Record(ctx context.Context, rec models.ClaimRecord) (bool, error)
	// List возвращает записи в порядке взятия.
	List(ctx context.Context) ([]models.ClaimRecord, error)
}

type messageKey struct {
	chatID    int64
	messageID int
}

// MemoryStore хранит журнал в памяти процесса. Используется без DATABASE_URL.
type MemoryStore struct {
	mu           sync.Mutex
	reservations map[string]models.ClaimRecord
	records      map[messageKey]models.ClaimRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[string]models.ClaimRecord),
		records:      make(map[messageKey]models.ClaimRecord),
	}
}

func (s *MemoryStore) Reserve(_ context.Context, rec models.ClaimRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.reservations[rec.OrderID]; taken {
		return false, nil
	}
	s.reservations[rec.OrderID] = rec
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, orderID)
	return nil
}

func (s *MemoryStore) Record(_ context.Context, rec models.ClaimRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := messageKey{chatID: rec.ChatID, messageID: rec.MessageID}
	if _, taken := s.records[key]; taken {
		return false, nil
	}
	s.records[key] = rec
	return true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.ClaimRecord, error) {
	s.mu.Lock()
	out := make([]models.ClaimRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ClaimedAt.Equal(b.ClaimedAt) {
			return a.ClaimedAt.Before(b.ClaimedAt)
		}
		if a.OrderID != b.OrderID {
			return a.OrderID < b.OrderID
		}
		if a.ChatID != b.ChatID {
			return a.ChatID < b.ChatID
		}
		return a.MessageID < b.MessageID
	})
	return out, nil
}
