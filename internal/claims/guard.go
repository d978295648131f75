package claims

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderrelay/internal/models"
	"orderrelay/internal/relay"
)

// Request - нажатие кнопки "Забрать заказ" вместе с текстом, который сейчас в чате.
type Request struct {
	OrderID      string
	ChatID       int64
	MessageID    int
	CurrentText  string
	ClaimantID   int64
	ClaimantName string
}

// ApplyFunc заменяет текст сообщения и убирает кнопку одним запросом.
type ApplyFunc func(ctx context.Context, newText string) error

// Guard связывает решение по тексту сообщения с журналом взятий.
//
// Обычный режим повторяет поведение по тексту: два одновременных нажатия
// могут оба увидеть сообщение без отметки, выиграет последняя запись.
// Такой повторный захват попадает в журнал как предупреждение.
// Строгий режим резервирует order_id в Store до редактирования сообщения.
// Журнал ведется по сообщениям: повторная публикация того же order_id - отдельная запись.
type Guard struct {
	store  Store
	strict bool
	log    *zap.Logger
	now    func() time.Time
}

func NewGuard(store Store, strict bool, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{store: store, strict: strict, log: log, now: time.Now}
}

// Strict сообщает, включено ли резервирование до редактирования.
func (g *Guard) Strict() bool {
	return g.strict
}

// Claim возвращает true, если заказ закреплен за пользователем и сообщение обновлено.
// false без ошибки - заказ уже забран, сообщение не менялось.
func (g *Guard) Claim(ctx context.Context, req Request, apply ApplyFunc) (bool, error) {
	outcome := relay.AttemptClaim(req.CurrentText, req.ClaimantID, req.ClaimantName)
	if !outcome.Claimed {
		return false, nil
	}

	rec := models.ClaimRecord{
		OrderID:      req.OrderID,
		ChatID:       req.ChatID,
		MessageID:    req.MessageID,
		ClaimantID:   req.ClaimantID,
		ClaimantName: req.ClaimantName,
		ClaimedAt:    g.now().UTC(),
	}

	if g.strict {
		ok, err := g.store.Reserve(ctx, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			g.log.Info("заказ уже зарезервирован в журнале",
				zap.String("order_id", req.OrderID), zap.Int64("user_id", req.ClaimantID))
			return false, nil
		}
	}

	if err := apply(ctx, outcome.NewText); err != nil {
		if g.strict {
			if relErr := g.store.Release(ctx, req.OrderID); relErr != nil {
				g.log.Error("не удалось снять резерв заказа",
					zap.String("order_id", req.OrderID), zap.Error(relErr))
			}
		}
		return false, err
	}

	ok, err := g.store.Record(ctx, rec)
	switch {
	case err != nil:
		g.log.Warn("не удалось записать взятие в журнал",
			zap.String("order_id", req.OrderID), zap.Error(err))
	case !ok:
		g.log.Warn("повторный захват заказа: сообщение перезаписано",
			zap.String("order_id", req.OrderID),
			zap.Int64("chat_id", req.ChatID),
			zap.Int("message_id", req.MessageID),
			zap.Int64("user_id", req.ClaimantID))
	}
	return true, nil
}

// Records отдает журнал для выгрузки.
func (g *Guard) Records(ctx context.Context) ([]models.ClaimRecord, error) {
	return g.store.List(ctx)
}
