package handlers

import (
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"orderrelay/internal/relay"
	"orderrelay/internal/telegram_api"
	"orderrelay/internal/utils"
)

const (
	publishedText       = "✅ Заказ опубликован в целевую группу."
	publishFailedText   = "⚠️ Не удалось опубликовать заказ. Попробуйте позже."
	callbackFailureText = "⚠️ Ошибка. Попробуйте еще раз."
)

// publish отправляет заказ с кнопкой и подтверждает публикацию инициатору,
// если заказ ушел в другой чат.
func (bh *BotHandler) publish(msg *tgbotapi.Message, pub relay.Publication) error {
	sent, err := telegram_api.SendOrder(bh.Deps.Bot, pub.ChatID, pub.Text, pub.Button.Text, pub.Button.Data)
	if err != nil {
		return err
	}
	bh.log.Info("Заказ опубликован",
		zap.String("order_id", pub.OrderID),
		zap.String("publication_id", pub.ID),
		zap.Int64("chat_id", pub.ChatID),
		zap.Int("message_id", sent.MessageID),
		zap.Int64("user_id", userID(msg.From)))

	if pub.NotifyOrigin {
		bh.confirmPublication(msg.Chat.ID, pub.ChatID, sent.MessageID)
	}
	return nil
}

func (bh *BotHandler) confirmPublication(originChatID, chatID int64, messageID int) {
	text := publishedText
	link, ok := utils.MessageLink(chatID, messageID)
	if ok {
		text += "\n" + link
	}

	if ok && bh.Deps.Config.PublishQR {
		png, err := utils.QRCode(link)
		if err == nil {
			err = telegram_api.SendPhoto(bh.Deps.Bot, originChatID, "order-link.png", png, text)
		}
		if err == nil {
			return
		}
		bh.log.Warn("Не удалось отправить QR-код публикации", zap.Int64("chat_id", originChatID), zap.Error(err))
	}
	bh.sendText(originChatID, text)
}

// sendText отправляет служебный ответ. Ошибка только логируется.
func (bh *BotHandler) sendText(chatID int64, text string) {
	if err := telegram_api.SendText(bh.Deps.Bot, chatID, text); err != nil {
		bh.log.Error("Не удалось отправить сообщение", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// answer отвечает на коллбэк. Без ответа у пользователя крутится индикатор загрузки.
func (bh *BotHandler) answer(callbackID, text string, alert bool) {
	if err := telegram_api.AnswerCallback(bh.Deps.Bot, callbackID, text, alert); err != nil {
		bh.log.Warn("Ошибка ответа на CallbackQuery", zap.String("callback_id", callbackID), zap.Error(err))
	}
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
