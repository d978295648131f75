package api

import (
	"errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"orderrelay/internal/claims"
	"orderrelay/internal/config"
	"orderrelay/internal/relay"
	"orderrelay/internal/telegram_api"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config *config.Config
	// SecretKey - токен бота, им подписывается initData Telegram WebApp.
	SecretKey string
	Bot       telegram_api.Sender
	Publisher *relay.Publisher
	Guard     *claims.Guard
	Logger    *zap.Logger
}

// Server обслуживает HTTP API публикации заказов и журнала взятий.
type Server struct {
	deps ApiDependencies
	log  *zap.Logger
}

// NewServer проверяет зависимости.
func NewServer(deps ApiDependencies) (*Server, error) {
	if deps.Config == nil || deps.Bot == nil || deps.Publisher == nil || deps.Guard == nil || deps.SecretKey == "" {
		return nil, errors.New("не все зависимости для API были предоставлены")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{deps: deps, log: log}, nil
}

// SetupRoutes настраивает все маршруты для API.
func (s *Server) SetupRoutes(r chi.Router) {
	r.Get("/healthz", s.Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.deps.SecretKey, s.log))
		r.Use(AllowListMiddleware(s.deps.Config))

		r.Post("/api/orders", s.CreateOrder)
		r.Get("/api/claims", s.ListClaims)
		r.Get("/api/claims/export", s.ExportClaims)
	})
}
