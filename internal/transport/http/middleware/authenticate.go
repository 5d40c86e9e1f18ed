package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-books-api/internal/service"
	"github.com/pribylovaa/go-books-api/internal/transport/http/httperr"
)

type claimsKey struct{}

// ClaimsFrom достаёт claims аутентифицированного пользователя из контекста.
// Второе значение false означает, что запрос не проходил через Authenticate.
func ClaimsFrom(ctx context.Context) (service.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(service.Claims)
	return c, ok
}

// Authenticate извлекает и проверяет bearer access-токен из Authorization
// и кладёт claims в контекст запроса.
//
// Разделение обязанностей: мидлвар только аутентифицирует; проверка роли
// остаётся за хендлером защищённой операции — это позволяет использовать
// один и тот же мидлвар для операций с разными требованиями к ролям.
//
// Отказы:
//   - заголовок отсутствует — 401 missing_credential;
//   - заголовок не вида "Bearer <token>" — 401 malformed_credential;
//   - токен не прошёл проверку — 401 token_expired / unauthenticated.
func Authenticate(svc *service.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				httperr.WriteCode(w, r, http.StatusUnauthorized, "missing_credential", "authorization required")
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || strings.TrimSpace(auth[len(prefix):]) == "" {
				httperr.WriteCode(w, r, http.StatusUnauthorized, "malformed_credential", "malformed authorization header")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])

			claims, err := svc.Authenticate(token)
			if err != nil {
				if errors.Is(err, service.ErrTokenExpired) {
					httperr.WriteCode(w, r, http.StatusUnauthorized, "token_expired", "token expired")
					return
				}

				httperr.WriteCode(w, r, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
