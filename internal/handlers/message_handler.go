package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"orderrelay/internal/apperr"
	"orderrelay/internal/reports"
	"orderrelay/internal/telegram_api"
)

const (
	startText = "Готов публиковать заказы.\n" +
		"• /demo — пример сообщения\n" +
		"• /postjson {…} — опубликовать заказ из JSON\n" +
		"• /claims — выгрузка взятых заказов"
	postJSONUsageText = "Нужен JSON после команды. Пример:\n" +
		`/postjson {"order_id":"A1","service_title":"Эксперт на день","city":"Москва"}`
	forbiddenText       = "⛔ Недостаточно прав."
	validationPrefix    = "⚠️ Ошибка парсинга/валидации JSON: "
	noTargetText        = "⚠️ Целевой чат не настроен."
	emptyLedgerText     = "Журнал взятых заказов пуст."
	exportFailedText    = "⚠️ Не удалось выгрузить журнал. Попробуйте позже."
	exportFileTimestamp = "20060102_150405"
)

// HandleMessage обрабатывает входящие сообщения. Реагирует только на известные команды.
func (bh *BotHandler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || !msg.IsCommand() {
		return
	}
	if !bh.addressedToBot(msg) {
		return
	}

	command := msg.Command()
	handler, ok := bh.commands[command]
	if !ok {
		bh.log.Debug("Неизвестная команда", zap.String("command", command), zap.Int64("chat_id", msg.Chat.ID))
		return
	}

	bh.log.Info("Команда",
		zap.String("command", command),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int64("user_id", userID(msg.From)))
	handler(ctx, msg)
}

// addressedToBot отсекает команды, адресованные другому боту в группе.
func (bh *BotHandler) addressedToBot(msg *tgbotapi.Message) bool {
	withAt := msg.CommandWithAt()
	at := strings.IndexByte(withAt, '@')
	if at < 0 || bh.Deps.BotUsername == "" {
		return true
	}
	return strings.EqualFold(withAt[at+1:], bh.Deps.BotUsername)
}

func (bh *BotHandler) handleStart(_ context.Context, msg *tgbotapi.Message) {
	bh.sendText(msg.Chat.ID, startText)
}

func (bh *BotHandler) handleDemo(_ context.Context, msg *tgbotapi.Message) {
	pub := bh.Deps.Publisher.PlanDemo(userID(msg.From), msg.Chat.ID)
	if err := bh.publish(msg, pub); err != nil {
		bh.log.Error("Ошибка публикации демо-заказа", zap.Int64("chat_id", pub.ChatID), zap.Error(err))
		bh.sendText(msg.Chat.ID, publishFailedText)
	}
}

func (bh *BotHandler) handlePostJSON(_ context.Context, msg *tgbotapi.Message) {
	requester := userID(msg.From)
	if err := bh.Deps.Publisher.Authorize(requester); err != nil {
		bh.log.Info("Отказ в публикации", zap.Int64("user_id", requester))
		bh.sendText(msg.Chat.ID, forbiddenText)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		bh.sendText(msg.Chat.ID, postJSONUsageText)
		return
	}

	pub, err := bh.Deps.Publisher.PlanJSON(requester, msg.Chat.ID, []byte(args))
	if err != nil {
		bh.replyPlanError(msg, err)
		return
	}
	if err := bh.publish(msg, pub); err != nil {
		bh.log.Error("Ошибка публикации заказа",
			zap.String("order_id", pub.OrderID), zap.Int64("chat_id", pub.ChatID), zap.Error(err))
		bh.sendText(msg.Chat.ID, publishFailedText)
	}
}

func (bh *BotHandler) replyPlanError(msg *tgbotapi.Message, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		bh.log.Warn("Некорректный JSON заказа", zap.Int64("user_id", userID(msg.From)), zap.Error(err))
		bh.sendText(msg.Chat.ID, validationPrefix+verr.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		bh.sendText(msg.Chat.ID, forbiddenText)
	case errors.Is(err, apperr.ErrNoTarget):
		bh.sendText(msg.Chat.ID, noTargetText)
	default:
		bh.log.Error("Ошибка подготовки заказа", zap.Error(err))
		bh.sendText(msg.Chat.ID, publishFailedText)
	}
}

// handleClaimsExport отправляет журнал взятых заказов файлом XLSX.
func (bh *BotHandler) handleClaimsExport(ctx context.Context, msg *tgbotapi.Message) {
	if err := bh.Deps.Publisher.Authorize(userID(msg.From)); err != nil {
		bh.sendText(msg.Chat.ID, forbiddenText)
		return
	}

	records, err := bh.Deps.Guard.Records(ctx)
	if err != nil {
		bh.log.Error("Ошибка чтения журнала взятий", zap.Error(err))
		bh.sendText(msg.Chat.ID, exportFailedText)
		return
	}
	if len(records) == 0 {
		bh.sendText(msg.Chat.ID, emptyLedgerText)
		return
	}

	data, err := reports.ClaimsWorkbook(records)
	if err != nil {
		bh.log.Error("Ошибка формирования XLSX", zap.Error(err))
		bh.sendText(msg.Chat.ID, exportFailedText)
		return
	}

	name := fmt.Sprintf("claims_%s.xlsx", time.Now().Format(exportFileTimestamp))
	caption := fmt.Sprintf("Взятые заказы: %d", len(records))
	if err := telegram_api.SendDocument(bh.Deps.Bot, msg.Chat.ID, name, data, caption); err != nil {
		bh.log.Error("Ошибка отправки выгрузки", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		bh.sendText(msg.Chat.ID, exportFailedText)
	}
}
