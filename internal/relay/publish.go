package relay

import (
	"fmt"

	"github.com/google/uuid"

	"orderrelay/internal/apperr"
	"orderrelay/internal/config"
	"orderrelay/internal/formatters"
	"orderrelay/internal/models"
	"orderrelay/internal/utils"
)

// Button - единственная кнопка под опубликованным заказом.
type Button struct {
	Text string
	Data string
}

// PublishRequest - заказ и сведения о том, кто и откуда запросил публикацию.
type PublishRequest struct {
	Order        models.Order
	RequesterID  int64
	OriginChatID int64
}

// Publication - все, что нужно транспорту, чтобы отправить заказ.
type Publication struct {
	// ID связывает записи журнала одной публикации.
	ID      string
	OrderID string
	ChatID  int64
	Text    string
	Button  Button
	// NotifyOrigin - заказ уходит в другой чат, инициатору нужно подтверждение.
	NotifyOrigin bool
}

// Publisher превращает заказы в публикации по правилам конфигурации.
type Publisher struct {
	cfg *config.Config
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Destination возвращает TARGET_CHAT_ID или, если он не задан, чат-источник.
func (p *Publisher) Destination(originChatID int64) int64 {
	if p.cfg.TargetChatID != 0 {
		return p.cfg.TargetChatID
	}
	return originChatID
}

// Authorize проверяет белый список ADMIN_IDS.
func (p *Publisher) Authorize(requesterID int64) error {
	if !p.cfg.IsAdmin(requesterID) {
		return fmt.Errorf("пользователь %d: %w", requesterID, apperr.ErrUnauthorized)
	}
	return nil
}

// Plan готовит публикацию уже проверенного заказа. Не завершается ошибкой.
func (p *Publisher) Plan(req PublishRequest) Publication {
	chatID := p.Destination(req.OriginChatID)
	return Publication{
		ID:      uuid.NewString(),
		OrderID: req.Order.OrderID,
		ChatID:  chatID,
		Text:    formatters.RenderOrder(req.Order),
		Button: Button{
			Text: ClaimButtonText,
			Data: ClaimToken(req.Order.OrderID),
		},
		NotifyOrigin: req.OriginChatID != 0 && chatID != req.OriginChatID,
	}
}

// PlanDemo публикует демонстрационный заказ; доступно всем.
func (p *Publisher) PlanDemo(requesterID, originChatID int64) Publication {
	return p.Plan(PublishRequest{Order: DemoOrder(), RequesterID: requesterID, OriginChatID: originChatID})
}

// PlanJSON проверяет права и JSON-заказ. originChatID == 0 означает запрос не из чата (HTTP API):
// тогда нужен TARGET_CHAT_ID.
func (p *Publisher) PlanJSON(requesterID, originChatID int64, raw []byte) (Publication, error) {
	if err := p.Authorize(requesterID); err != nil {
		return Publication{}, err
	}
	if p.Destination(originChatID) == 0 {
		return Publication{}, apperr.ErrNoTarget
	}
	order, err := utils.ParseOrder(raw)
	if err != nil {
		return Publication{}, err
	}
	return p.Plan(PublishRequest{Order: order, RequesterID: requesterID, OriginChatID: originChatID}), nil
}
