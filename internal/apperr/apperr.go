// Package apperr описывает классы ошибок бота и их отображение на HTTP-статусы.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized - инициатор не входит в список ADMIN_IDS.
	ErrUnauthorized = errors.New("недостаточно прав")
	// ErrNoTarget - публикация через API невозможна без TARGET_CHAT_ID.
	ErrNoTarget = errors.New("целевой чат не настроен")
	// ErrTransport - любая ошибка Telegram Bot API (сеть, лимиты, права).
	ErrTransport = errors.New("ошибка Telegram API")
)

// FieldError - одна причина отказа валидации.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError собирает все ошибки разбора заказа.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// Empty сообщает, что ошибок не накоплено.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return strings.Join(parts, "; ")
}

// Transport оборачивает ошибку Telegram API, сохраняя исходную причину.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

func Kind(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""

	case errors.As(err, &verr):
		return "validation"

	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"

	case errors.Is(err, ErrNoTarget):
		return "no_target"

	case errors.Is(err, ErrTransport):
		return "transport"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK

	case errors.As(err, &verr):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, ErrNoTarget):
		return http.StatusConflict

	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
