// httperr стандартизирует ответы об ошибках HTTP-слоя books-api.
// На вход он принимает доменную ошибку сервисного слоя, а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Исключение из общей схемы — /refresh_token: этот эндпоинт по контракту
// всегда отвечает 200 с пустым access-токеном при любом отказе, чтобы
// не давать различать причины отказа снаружи (см. хендлер).
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-books-api/internal/service"
)

// APIError — единый формат ошибки для клиента.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - известные доменные ошибки маппятся по таблице ниже;
//   - прочее — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, envelope("internal", "internal error")
	}

	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidBook):
		return http.StatusBadRequest, envelope("invalid_argument", "invalid argument")
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, envelope("already_exists", "already exists")
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, envelope("token_expired", "token expired")
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, envelope("unauthenticated", "unauthenticated")
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden, envelope("permission_denied", "not authorized")
	default:
		return http.StatusInternalServerError, envelope("internal", "internal error")
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	write(w, r, status, resp)
}

// WriteCode пишет ответ с явным статусом и кодом (для ошибок транспортного
// уровня: отсутствующий/искажённый bearer-заголовок, битый JSON).
func WriteCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, r, status, envelope(code, message))
}

func envelope(code, message string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: message}}
}

func write(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	// Прокидываем request_id, чтобы клиент мог репортить проблемы с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
