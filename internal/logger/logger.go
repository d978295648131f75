package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Log глобальный логгер, инициализируется функцией Initialize.
// По умолчанию используется заглушка zap.NewNop(), которая не выводит никаких логов.
var Log *zap.Logger = zap.NewNop()

// Initialize инициализирует логгер с заданным уровнем логирования и средой выполнения.
// Параметры:
// - level: уровень логирования (например, "debug", "info", "warn", "error").
// - env: среда выполнения ("dev"/"development" или любая другая для production).
func Initialize(level, env string) error {
	logLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("ошибка парсинга уровня логирования: %w", err)
	}

	var config zap.Config
	if env == "dev" || env == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = logLevel

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("ошибка построения логгера: %w", err)
	}

	Log = logger.Named("order-bot")
	return nil
}

// RequestLogger логирует каждый HTTP-запрос: URI, метод, длительность, статус и request id.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		Log.Info("Запрос обработан",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("uri", r.RequestURI),
			zap.String("method", r.Method),
			zap.Duration("duration", time.Since(startTime)),
			zap.Int("status", status),
		)
	})
}
