package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-books-api/internal/config"
	"github.com/pribylovaa/go-books-api/internal/service"
	"github.com/pribylovaa/go-books-api/internal/transport/http/handlers"
	"github.com/pribylovaa/go-books-api/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Auth    config.AuthConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Auth)

	// Открытые эндпоинты: токен не требуется.
	root.Post("/register", h.Register)
	root.Post("/login", h.Login)
	root.Post("/refresh_token", h.Refresh)
	root.Post("/logout", h.Logout)

	// Защищённые эндпоинты: bearer access-токен; роль проверяет хендлер.
	root.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(svc))
		r.Get("/books", h.ListBooks)
		r.Post("/books", h.AddBook)
	})

	return root
}
