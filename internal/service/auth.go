package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pribylovaa/go-books-api/internal/models"
	"github.com/pribylovaa/go-books-api/internal/pkg/log"
	"github.com/pribylovaa/go-books-api/internal/pkg/redact"
	"github.com/pribylovaa/go-books-api/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUser регистрирует нового пользователя с ролью user.
// Администраторы не регистрируются через публичный API.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return user.ID, nil
}

// LoginUser выполняет вход по email+пароль и выпускает новую пару токенов.
// Прежняя refresh-сессия пользователя (если была) становится недействительной.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.LoginUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user, "")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user, nil
}

// RefreshToken обновляет пару токенов по refresh-токену.
//
// Валидность refresh-токена двухсоставная: криптографическая (подпись и срок)
// и сессионная (совпадение с последним выданным значением у пользователя).
// Детальная причина отказа попадает только в логи; транспорт отдаёт клиенту
// единообразный отказ без уточнения.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshToken"

	lg := log.From(ctx)

	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		lg.Warn("refresh_token_rejected",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_unknown_user",
				slog.String("op", op),
				slog.String("user_id", claims.UserID.String()),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	oldHash := hashToken(refreshToken)

	// Кэш — только подсказка для наблюдаемости: запись в него best-effort
	// и могла отстать от БД. Несовпадение фиксируем в логах, но решение о
	// судьбе токена принимает compare-and-swap в хранилище.
	if s.scache != nil {
		if cached, ok, cerr := s.scache.Get(ctx, user.ID); cerr == nil && ok && cached != oldHash {
			lg.Warn("refresh_session_cache_mismatch",
				slog.String("op", op),
				slog.String("user_id", user.ID.String()),
			)
		}
	}

	pair, err := s.issueTokenPair(ctx, user, oldHash)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			lg.Warn("refresh_stale_session",
				slog.String("op", op),
				slog.String("user_id", user.ID.String()),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Logout завершает refresh-сессию пользователя.
// Сессия сбрасывается только если предъявленный токен совпадает с текущим:
// повтор старого токена не должен завершать чужую живую сессию.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshTokenHash != hashToken(refreshToken) {
		return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if err := s.storage.ClearRefreshToken(ctx, user.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if s.scache != nil {
		if cerr := s.scache.Del(ctx, user.ID); cerr != nil {
			lg.Warn("session_cache_del_failed",
				slog.String("op", op),
				slog.String("err", cerr.Error()),
			)
		}
	}

	lg.Info("user_logged_out",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return nil
}

// Authenticate проверяет access-токен и возвращает его claims.
// Проверка чисто криптографическая (подпись + срок), без обращения к
// хранилищу; авторизация по роли остаётся за вызывающей операцией.
func (s *Service) Authenticate(accessToken string) (Claims, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.parseToken(accessToken, s.cfg.AccessSecret)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
