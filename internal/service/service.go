// service содержит бизнес-логику books-api:
// регистрацию/аутентификацию пользователей, выпуск/проверку/ротацию токенов,
// операции над каталогом книг и работу с хранилищем через интерфейсы
// из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Атомарность ротации refresh-токена обеспечивается compare-and-swap
//     на стороне хранилища, а не блокировками в сервисе.
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-books-api/internal/cache"
	"github.com/pribylovaa/go-books-api/internal/config"
	"github.com/pribylovaa/go-books-api/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи
	// или принадлежит несуществующему пользователю. Транспорт: HTTP 401;
	// для /refresh_token — пустой access-токен при статусе 200.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — предъявлен refresh-токен, не совпадающий с текущей
	// сессией пользователя (устаревший/уже ротированный/после logout).
	// Недействителен независимо от подписи и срока. Транспорт: как ErrInvalidToken.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrNotAuthorized — роль пользователя не допускает операцию.
	// Транспорт: HTTP 403.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат или не проходит политику валидации.
	// Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой.
	// Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidBook — данные книги не проходят валидацию.
	// Транспорт: HTTP 400.
	ErrInvalidBook = errors.New("invalid book")
)

// Service описывает бизнес-логику books-api.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	scache  cache.SessionCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetSessionCache устанавливает кэш refresh-сессий (опционально).
func (s *Service) SetSessionCache(c cache.SessionCache) {
	s.scache = c
}
