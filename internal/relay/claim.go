package relay

import (
	"strings"

	"orderrelay/internal/formatters"
)

const (
	// ClaimMarker - текущая отметка о взятии заказа.
	ClaimMarker = "Забрал:"
	// LegacyClaimMarker встречается в сообщениях, опубликованных ранними версиями бота.
	LegacyClaimMarker = "Взял:"

	ClaimCallbackPrefix = "take:"
	ClaimButtonText     = "Забрать заказ"
)

// ClaimOutcome - результат попытки забрать заказ.
// Claimed == false означает "уже забран": сообщение менять нельзя.
type ClaimOutcome struct {
	Claimed bool
	NewText string
}

// HasClaimMarker проверяет, есть ли в тексте отметка о взятии (в любом из вариантов).
func HasClaimMarker(text string) bool {
	return strings.Contains(text, ClaimMarker) || strings.Contains(text, LegacyClaimMarker)
}

// AttemptClaim решает судьбу нажатия "Забрать заказ" по тексту, который сейчас
// показан в чате. Сам текст сообщения - единственное хранилище факта взятия.
func AttemptClaim(currentText string, claimantID int64, claimantName string) ClaimOutcome {
	if HasClaimMarker(currentText) {
		return ClaimOutcome{}
	}
	return ClaimOutcome{
		Claimed: true,
		NewText: currentText + "\n\n<b>" + ClaimMarker + "</b> " + formatters.MentionHTML(claimantID, claimantName),
	}
}

// ClaimToken кодирует order_id в callback_data кнопки.
func ClaimToken(orderID string) string {
	return ClaimCallbackPrefix + orderID
}

// ParseClaimToken извлекает order_id из callback_data.
func ParseClaimToken(data string) (string, bool) {
	if !strings.HasPrefix(data, ClaimCallbackPrefix) {
		return "", false
	}
	return strings.TrimPrefix(data, ClaimCallbackPrefix), true
}
