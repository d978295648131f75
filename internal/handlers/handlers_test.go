package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderrelay/internal/claims"
	"orderrelay/internal/config"
	"orderrelay/internal/relay"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	sendErr  error
	editErr  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.editErr != nil {
		return nil, f.editErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBot) answers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if a, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

type testEnv struct {
	bot     *fakeBot
	handler *BotHandler
	guard   *claims.Guard
}

func newTestEnv(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	if cfg.AdminIDs == nil {
		cfg.AdminIDs = map[int64]struct{}{}
	}
	bot := &fakeBot{}
	guard := claims.NewGuard(claims.NewMemoryStore(), cfg.ClaimStrict, nil)
	bh, err := NewBotHandler(HandlerDependencies{
		Config:      cfg,
		Bot:         bot,
		Publisher:   relay.NewPublisher(cfg),
		Guard:       guard,
		BotUsername: "order_bot",
	})
	require.NoError(t, err)
	return testEnv{bot: bot, handler: bh, guard: guard}
}

// commandUpdate собирает обновление через JSON, как его присылает Telegram.
func commandUpdate(t *testing.T, chatID, fromID int64, text string) tgbotapi.Update {
	t.Helper()
	command := text
	if i := strings.IndexByte(text, ' '); i >= 0 {
		command = text[:i]
	}
	raw := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 10,
			"date":       0,
			"chat":       map[string]any{"id": chatID, "type": "group"},
			"from":       map[string]any{"id": fromID, "is_bot": false, "first_name": "Иван"},
			"text":       text,
			"entities": []map[string]any{
				{"type": "bot_command", "offset": 0, "length": len(command)},
			},
		},
	}
	return decodeUpdate(t, raw)
}

func callbackUpdate(t *testing.T, id string, fromID int64, firstName string, messageID int, text, data string) tgbotapi.Update {
	t.Helper()
	raw := map[string]any{
		"update_id": 2,
		"callback_query": map[string]any{
			"id":   id,
			"from": map[string]any{"id": fromID, "is_bot": false, "first_name": firstName},
			"data": data,
			"message": map[string]any{
				"message_id": messageID,
				"date":       0,
				"chat":       map[string]any{"id": int64(-1001234567890), "type": "supergroup"},
				"text":       text,
			},
		},
	}
	return decodeUpdate(t, raw)
}

func decodeUpdate(t *testing.T, raw map[string]any) tgbotapi.Update {
	t.Helper()
	b, err := json.Marshal(raw)
	require.NoError(t, err)
	var u tgbotapi.Update
	require.NoError(t, json.Unmarshal(b, &u))
	return u
}

func TestNewBotHandlerRequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewBotHandler(HandlerDependencies{})
	assert.Error(t, err)
}

func TestStartCommand(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/start"))

	msgs := env.bot.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/demo")
	assert.Contains(t, msgs[0].Text, "/postjson")
}

func TestCommandForAnotherBotIgnored(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/start@other_bot"))
	assert.Empty(t, env.bot.messages())

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/start@Order_Bot"))
	assert.Len(t, env.bot.messages(), 1)
}

func TestDemoPublishesInOriginChat(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/demo"))

	msgs := env.bot.messages()
	require.Len(t, msgs, 1, "без TARGET_CHAT_ID подтверждение не отправляется")
	assert.Equal(t, int64(5), msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "<b>‼ Выездная диагностика ‼</b>\nМосква"))

	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "Забрать заказ", kb.InlineKeyboard[0][0].Text)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "take:907351", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestDemoToTargetChatConfirmsWithLink(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{TargetChatID: -1001234567890})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/demo"))

	msgs := env.bot.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(-1001234567890), msgs[0].ChatID)
	assert.Equal(t, int64(5), msgs[1].ChatID)
	assert.Equal(t, "✅ Заказ опубликован в целевую группу.\nhttps://t.me/c/1234567890/1", msgs[1].Text)
}

func TestDemoToTargetChatWithQR(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{TargetChatID: -1001234567890, PublishQR: true})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/demo"))

	env.bot.mu.Lock()
	defer env.bot.mu.Unlock()
	require.Len(t, env.bot.sent, 2)
	photo, ok := env.bot.sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "https://t.me/c/1234567890/1")
}

func TestDemoTransportFailureNotifies(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})
	env.bot.sendErr = errors.New("Too Many Requests")

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/demo"))

	msgs := env.bot.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, publishFailedText, msgs[1].Text)
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		admins   map[int64]struct{}
		text     string
		wantText string
		wantPub  bool
	}{
		{
			name:     "valid order",
			text:     `/postjson {"order_id":"A1","service_title":"Эксперт на день"}`,
			wantText: "<b>‼ Эксперт на день ‼</b>\nМосква\n<b>К оплате:</b> 0",
			wantPub:  true,
		},
		{
			name:     "not in allow-list",
			admins:   map[int64]struct{}{1: {}},
			text:     `/postjson {"order_id":"A1","service_title":"x"}`,
			wantText: forbiddenText,
		},
		{
			name:     "missing arguments",
			text:     "/postjson",
			wantText: postJSONUsageText,
		},
		{
			name:     "validation failure",
			text:     `/postjson {"order_id":"A1","service_title":"   "}`,
			wantText: validationPrefix + "service_title: service_title must be non-empty",
		},
		{
			name:     "malformed json",
			text:     `/postjson {"order_id":`,
			wantText: validationPrefix,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, &config.Config{AdminIDs: tt.admins})

			env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, tt.text))

			msgs := env.bot.messages()
			require.Len(t, msgs, 1)
			assert.True(t, strings.HasPrefix(msgs[0].Text, tt.wantText), msgs[0].Text)
			if tt.wantPub {
				_, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
				assert.True(t, ok)
			} else {
				assert.Nil(t, msgs[0].ReplyMarkup)
			}
		})
	}
}

func TestTakeClaimsOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})
	ctx := context.Background()

	env.handler.HandleUpdate(ctx, callbackUpdate(t, "q1", 42, "Ab", 77, "‼ X ‼\nМосква", "take:A1"))

	edits := env.bot.edits()
	require.Len(t, edits, 1)
	assert.Equal(t, 77, edits[0].MessageID)
	assert.Nil(t, edits[0].ReplyMarkup, "кнопка снимается тем же запросом")
	assert.Equal(t, tgbotapi.ModeHTML, edits[0].ParseMode)
	assert.Equal(t, "‼ X ‼\nМосква\n\n<b>Забрал:</b> <a href=\"tg://user?id=42\">Ab</a>", edits[0].Text)

	answers := env.bot.answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "q1", answers[0].CallbackQueryID)
	assert.Equal(t, claimedText, answers[0].Text)
	assert.False(t, answers[0].ShowAlert)

	records, err := env.guard.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A1", records[0].OrderID)
	assert.Equal(t, int64(42), records[0].ClaimantID)

	// Второе нажатие видит отметку в тексте сообщения.
	claimedPlain := "‼ X ‼\nМосква\n\nЗабрал: Ab"
	env.handler.HandleUpdate(ctx, callbackUpdate(t, "q2", 43, "Cd", 77, claimedPlain, "take:A1"))

	assert.Len(t, env.bot.edits(), 1)
	answers = env.bot.answers()
	require.Len(t, answers, 2)
	assert.Equal(t, alreadyClaimedText, answers[1].Text)
	assert.True(t, answers[1].ShowAlert)
}

func TestTakeLegacyMarker(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})

	env.handler.HandleUpdate(context.Background(), callbackUpdate(t, "q1", 42, "Ab", 77, "заказ\n\nВзял: Петр", "take:A1"))

	assert.Empty(t, env.bot.edits())
	answers := env.bot.answers()
	require.Len(t, answers, 1)
	assert.Equal(t, alreadyClaimedText, answers[0].Text)
}

func TestTakeEditFailureAnswersWithAlert(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{ClaimStrict: true})
	env.bot.editErr = errors.New("Bad Request: message can't be edited")
	ctx := context.Background()

	env.handler.HandleUpdate(ctx, callbackUpdate(t, "q1", 42, "Ab", 77, "заказ", "take:A1"))

	answers := env.bot.answers()
	require.Len(t, answers, 1)
	assert.Equal(t, callbackFailureText, answers[0].Text)
	assert.True(t, answers[0].ShowAlert)

	records, err := env.guard.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "резерв снимается после неудачного редактирования")
}

func TestUnknownCallbackAnswered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})

	env.handler.HandleUpdate(context.Background(), callbackUpdate(t, "q9", 42, "Ab", 77, "заказ", "noop"))

	answers := env.bot.answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "q9", answers[0].CallbackQueryID)
	assert.Empty(t, env.bot.edits())
}

func TestClaimsExport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{})
	ctx := context.Background()

	env.handler.HandleUpdate(ctx, commandUpdate(t, 5, 7, "/claims"))
	msgs := env.bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, emptyLedgerText, msgs[0].Text)

	env.handler.HandleUpdate(ctx, callbackUpdate(t, "q1", 42, "Ab", 77, "заказ", "take:A1"))
	env.handler.HandleUpdate(ctx, commandUpdate(t, 5, 7, "/claims"))

	env.bot.mu.Lock()
	defer env.bot.mu.Unlock()
	doc, ok := env.bot.sent[len(env.bot.sent)-1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "Взятые заказы: 1", doc.Caption)
}

func TestClaimsExportForbidden(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &config.Config{AdminIDs: map[int64]struct{}{1: {}}})

	env.handler.HandleUpdate(context.Background(), commandUpdate(t, 5, 7, "/claims"))

	msgs := env.bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, forbiddenText, msgs[0].Text)
}
