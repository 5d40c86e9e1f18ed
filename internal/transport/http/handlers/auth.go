package handlers

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/go-books-api/internal/pkg/log"
	"github.com/pribylovaa/go-books-api/internal/transport/http/httperr"
)

// refreshCookieName — имя httpOnly-куки с refresh-токеном.
// Кука ограничена путём /refresh_token: браузер не отправляет её
// на прочие эндпоинты, что сужает окно утечки.
const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/refresh_token"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	ExpiresAt   int64  `json:"expires_at"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Register регистрирует нового пользователя.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteCode(w, r, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	if _, err := h.svc.RegisterUser(r.Context(), in.Email, in.Password); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "user created successfully"})
}

// Login аутентифицирует пользователя.
// Access-токен уходит в теле ответа, refresh-токен — httpOnly-кукой.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteCode(w, r, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	pair, user, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: pair.AccessToken,
		Email:       user.Email,
		ExpiresAt:   pair.AccessExpiresAt.Unix(),
	})
}

// Refresh выпускает новую пару токенов по refresh-куке.
//
// Контракт эндпоинта: всегда 200. Отсутствие куки — валидное состояние
// «не залогинен», любой отказ ротации — пустой access-токен без уточнения
// причины (анти-перечисление); конкретная причина остаётся в логах сервиса.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: ""})
		return
	}

	pair, err := h.svc.RefreshToken(r.Context(), cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: ""})
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: pair.AccessToken})
}

// Logout завершает сессию: чистит refresh-куку и, если предъявленная кука
// валидна, сбрасывает серверную сессию — старый refresh-токен после logout
// нельзя повторно предъявить.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		// Ошибка не мешает logout: кука будет очищена в любом случае.
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			logctx.From(r.Context()).Warn("logout_session_clear_failed",
				slog.String("err", err.Error()),
			)
		}
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.auth.RefreshTokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
