// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultPort = "8080"

// Config хранит все конфигурационные параметры приложения.
// Создается один раз при старте и передается по указателю.
type Config struct {
	TelegramToken string
	AppEnv        string
	LogLevel      string
	Port          string
	DatabaseURL   string

	// TargetChatID - чат для публикации заказов; 0 означает "чат, из которого пришла команда".
	TargetChatID int64
	// AdminIDs - белый список для /postjson, /claims и HTTP API. Пустой список - доступ у всех.
	AdminIDs map[int64]struct{}

	// ClaimStrict включает резервирование заказа в хранилище до редактирования сообщения.
	ClaimStrict bool
	// PublishQR добавляет QR-код ссылки на опубликованный заказ в подтверждение.
	PublishQR bool
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		TelegramToken: getenv("BOT_TOKEN"),
		AppEnv:        getenv("ENV"),
		LogLevel:      getenv("LOG_LEVEL"),
		Port:          getenv("PORT"),
		DatabaseURL:   getenv("DATABASE_URL"),
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = getenv("TELEGRAM_APITOKEN")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("не указан BOT_TOKEN")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if raw := strings.TrimSpace(getenv("TARGET_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный TARGET_CHAT_ID %q: %w", raw, err)
		}
		cfg.TargetChatID = id
	}

	admins, err := ParseAdminIDs(getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminIDs = admins

	if cfg.ClaimStrict, err = parseBool(getenv, "CLAIM_STRICT"); err != nil {
		return nil, err
	}
	if cfg.PublishQR, err = parseBool(getenv, "PUBLISH_QR"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseAdminIDs разбирает список идентификаторов через запятую. Пустые элементы пропускаются.
func ParseAdminIDs(raw string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный идентификатор в ADMIN_IDS %q: %w", part, err)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// IsAdmin проверяет доступ по белому списку. Без списка доступ открыт.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.AdminIDs) == 0 {
		return true
	}
	_, ok := c.AdminIDs[userID]
	return ok
}

func parseBool(getenv func(string) string, key string) (bool, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("некорректное значение %s %q: %w", key, raw, err)
	}
	return v, nil
}
