package telegram_api

import (
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"orderrelay/internal/logger"
)

// Sender - часть Bot API, которой пользуются обработчики. В тестах подменяется фейком.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotClient представляет собой обертку для Telegram Bot API.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// NewBotClient авторизует бота и отключает вебхук, чтобы работал getUpdates.
func NewBotClient(token string, debug bool) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug

	logger.Log.Info("Авторизован как аккаунт", zap.String("username", api.Self.UserName))

	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}
	if _, err = api.Request(deleteWebhookConfig); err != nil {
		// Ошибка может возникнуть, если вебхука и не было.
		logger.Log.Warn("Ошибка при отключении вебхука", zap.Error(err))
	}

	return &BotClient{api: api, Debug: debug}, nil
}

// Username возвращает имя бота, нужно для разбора команд вида /demo@bot.
func (bc *BotClient) Username() string {
	return bc.api.Self.UserName
}

// GetUpdatesChan возвращает канал обновлений от Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if bc.Debug {
		logger.Log.Debug("Запрос канала обновлений", zap.Any("config", config))
	}
	return bc.api.GetUpdatesChan(config)
}

// StopReceivingUpdates останавливает long polling; канал обновлений закрывается.
func (bc *BotClient) StopReceivingUpdates() {
	bc.api.StopReceivingUpdates()
}

// Send отправляет сообщение через BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc.Debug {
		switch msg := c.(type) {
		case tgbotapi.MessageConfig:
			logger.Log.Debug("Отправка сообщения", zap.Int64("chat_id", msg.ChatID), zap.Int("text_len", len(msg.Text)))
		case tgbotapi.EditMessageTextConfig:
			logger.Log.Debug("Редактирование сообщения", zap.Int64("chat_id", msg.ChatID), zap.Int("message_id", msg.MessageID))
		default:
			logger.Log.Debug("Отправка запроса", zap.String("type", fmt.Sprintf("%T", c)))
		}
	}
	return bc.api.Send(c)
}

// Request выполняет запрос, ответ на который не является сообщением.
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc.Debug {
		if cbAns, ok := c.(tgbotapi.CallbackConfig); ok {
			logger.Log.Debug("Ответ на коллбэк", zap.String("callback_id", cbAns.CallbackQueryID), zap.String("text", cbAns.Text))
		} else {
			logger.Log.Debug("Выполнение запроса", zap.String("type", fmt.Sprintf("%T", c)))
		}
	}
	return bc.api.Request(c)
}
