package handlers

import (
	"context"
	"errors"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"orderrelay/internal/claims"
	"orderrelay/internal/config"
	"orderrelay/internal/relay"
	"orderrelay/internal/telegram_api"
)

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
type HandlerDependencies struct {
	Config    *config.Config
	Bot       telegram_api.Sender
	Publisher *relay.Publisher
	Guard     *claims.Guard
	Logger    *zap.Logger
	// BotUsername отсекает команды вида /demo@other_bot. Пустое значение - принимать все.
	BotUsername string
}

type commandFunc func(ctx context.Context, msg *tgbotapi.Message)

type callbackFunc func(ctx context.Context, query *tgbotapi.CallbackQuery, payload string)

type callbackRoute struct {
	prefix  string
	handler callbackFunc
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков.
type BotHandler struct {
	Deps      HandlerDependencies
	log       *zap.Logger
	commands  map[string]commandFunc
	callbacks []callbackRoute
}

// NewBotHandler создает новый экземпляр BotHandler и таблицу маршрутов.
func NewBotHandler(deps HandlerDependencies) (*BotHandler, error) {
	if deps.Config == nil || deps.Bot == nil || deps.Publisher == nil || deps.Guard == nil {
		return nil, errors.New("не все зависимости для BotHandler были предоставлены")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	bh := &BotHandler{Deps: deps, log: log}
	bh.commands = map[string]commandFunc{
		"start":    bh.handleStart,
		"demo":     bh.handleDemo,
		"postjson": bh.handlePostJSON,
		"claims":   bh.handleClaimsExport,
	}
	bh.callbacks = []callbackRoute{
		{prefix: relay.ClaimCallbackPrefix, handler: bh.handleTake},
	}
	return bh, nil
}

// HandleUpdate разбирает обновление. Паника внутри обработчика логируется и не роняет процесс.
func (bh *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			bh.log.Error("Паника при обработке обновления",
				zap.Int("update_id", update.UpdateID), zap.Any("panic", r), zap.Stack("stack"))
			if update.CallbackQuery != nil {
				bh.answer(update.CallbackQuery.ID, callbackFailureText, true)
			}
		}
	}()

	switch {
	case update.Message != nil:
		bh.HandleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		bh.HandleCallback(ctx, update.CallbackQuery)
	}
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
