package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"orderrelay/internal/claims"
	"orderrelay/internal/telegram_api"
)

const (
	alreadyClaimedText = "Заказ уже забран."
	claimedText        = "Заказ закреплён за тобой."
	messageGoneText    = "⚠️ Сообщение с заказом недоступно."
)

// HandleCallback обрабатывает нажатия инлайн-кнопок. На каждый коллбэк дается ответ.
func (bh *BotHandler) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query == nil {
		return
	}
	for _, route := range bh.callbacks {
		if payload, ok := strings.CutPrefix(query.Data, route.prefix); ok {
			route.handler(ctx, query, payload)
			return
		}
	}
	bh.log.Debug("Неизвестный коллбэк", zap.String("data", query.Data))
	bh.answer(query.ID, "", false)
}

// handleTake закрепляет заказ за первым нажавшим.
func (bh *BotHandler) handleTake(ctx context.Context, query *tgbotapi.CallbackQuery, orderID string) {
	msg := query.Message
	if msg == nil {
		bh.log.Warn("Коллбэк без сообщения", zap.String("order_id", orderID))
		bh.answer(query.ID, messageGoneText, true)
		return
	}

	req := claims.Request{
		OrderID:      orderID,
		ChatID:       msg.Chat.ID,
		MessageID:    msg.MessageID,
		CurrentText:  telegram_api.HTMLFromEntities(msg.Text, msg.Entities),
		ClaimantID:   userID(query.From),
		ClaimantName: fullName(query.From),
	}
	fields := []zap.Field{
		zap.String("order_id", req.OrderID),
		zap.Int64("chat_id", req.ChatID),
		zap.Int("message_id", req.MessageID),
		zap.Int64("user_id", req.ClaimantID),
	}

	claimed, err := bh.Deps.Guard.Claim(ctx, req, func(_ context.Context, newText string) error {
		return telegram_api.EditHTML(bh.Deps.Bot, req.ChatID, req.MessageID, newText)
	})
	switch {
	case err != nil:
		bh.log.Error("Ошибка взятия заказа", append(fields, zap.Error(err))...)
		bh.answer(query.ID, callbackFailureText, true)
	case !claimed:
		bh.log.Info("Заказ уже забран", fields...)
		bh.answer(query.ID, alreadyClaimedText, true)
	default:
		bh.log.Info("Заказ забран", fields...)
		bh.answer(query.ID, claimedText, false)
	}
}
