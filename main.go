package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderrelay/internal/api"
	"orderrelay/internal/claims"
	"orderrelay/internal/config"
	"orderrelay/internal/db"
	"orderrelay/internal/handlers"
	"orderrelay/internal/logger"
	"orderrelay/internal/relay"
	"orderrelay/internal/telegram_api"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать логгер: %v", err)
	}
	defer func() { _ = logger.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("Приложение завершилось с ошибкой", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Приложение остановлено")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openClaimStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bot, err := telegram_api.NewBotClient(cfg.TelegramToken, cfg.AppEnv == "dev")
	if err != nil {
		return err
	}

	guard := claims.NewGuard(store, cfg.ClaimStrict, logger.Log.Named("claims"))
	publisher := relay.NewPublisher(cfg)

	botHandler, err := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:      cfg,
		Bot:         bot,
		Publisher:   publisher,
		Guard:       guard,
		Logger:      logger.Log.Named("bot"),
		BotUsername: bot.Username(),
	})
	if err != nil {
		return err
	}

	apiServer, err := api.NewServer(api.ApiDependencies{
		Config:    cfg,
		SecretKey: cfg.TelegramToken,
		Bot:       bot,
		Publisher: publisher,
		Guard:     guard,
		Logger:    logger.Log.Named("api"),
	})
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.RequestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Telegram-Auth"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	apiServer.SetupRoutes(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Log.Info("Бот и API-сервер запускаются",
		zap.String("port", cfg.Port),
		zap.Int64("target_chat_id", cfg.TargetChatID),
		zap.Bool("claim_strict", cfg.ClaimStrict))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP-сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		pollUpdates(gctx, bot, botHandler)
		return nil
	})

	return g.Wait()
}

// openClaimStore выбирает PostgreSQL при заданном DATABASE_URL, иначе журнал в памяти.
func openClaimStore(ctx context.Context, cfg *config.Config) (claims.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Log.Info("DATABASE_URL не задан, журнал взятий хранится в памяти")
		return claims.NewMemoryStore(), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Log.Warn("Ошибка закрытия соединения с БД", zap.Error(err))
		}
	}
	return db.NewClaimStore(conn), closeFn, nil
}

// pollUpdates читает long polling до отмены контекста. Каждое обновление обрабатывается
// в своей горутине; перед выходом дожидается начатых обработчиков.
func pollUpdates(ctx context.Context, bot *telegram_api.BotClient, h *handlers.BotHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.HandleUpdate(context.WithoutCancel(ctx), update)
			}()
		}
	}
}
