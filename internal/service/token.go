package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-books-api/internal/models"
	"github.com/pribylovaa/go-books-api/internal/pkg/log"
	"github.com/pribylovaa/go-books-api/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims — полезная нагрузка токена после успешной проверки:
// идентификатор пользователя, роль и временные границы действия.
type Claims struct {
	UserID    uuid.UUID
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// signToken подписывает claims с заданным секретом и сроком действия (HS256).
// Access- и refresh-токены отличаются только секретом и TTL.
func (s *Service) signToken(userID uuid.UUID, role models.Role, secret string, ttl time.Duration, now time.Time) (string, error) {
	const op = "service.token.signToken"

	claims := tokenClaims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
			// jti делает каждый токен уникальным даже при совпадении
			// остальных claims в пределах одной секунды; без него ротация
			// могла бы выдать байт-в-байт тот же refresh-токен.
			ID: uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// parseToken проверяет подпись и срок действия токена.
// Различается только причина ErrTokenExpired; любые прочие дефекты
// (чужой секрет, подмена алгоритма, мусор на входе) дают ErrInvalidToken.
func (s *Service) parseToken(tokenStr, secret string) (Claims, error) {
	const op = "service.token.parseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	out := Claims{
		UserID: uid,
		Role:   models.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

// hashToken — хэш refresh-токена для хранения (SHA-256, base64url).
// В БД и кэше никогда не лежит сырое значение токена.
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// issueTokenPair выпускает новую пару access+refresh токенов.
// Это единственное место, где refresh-токен становится «текущим»:
//   - oldHash == "" — логин/регистрация сессии, безусловная перезапись;
//   - oldHash != "" — ротация, атомарный compare-and-swap; несовпадение
//     текущего значения означает предъявление устаревшего токена.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, oldHash string) (*models.TokenPair, error) {
	const op = "service.token.issueTokenPair"

	lg := log.From(ctx)
	now := time.Now().UTC()

	accessToken, err := s.signToken(user.ID, user.Role, s.cfg.AccessSecret, s.cfg.AccessTokenTTL, now)
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.signToken(user.ID, user.Role, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL, now)
	if err != nil {
		lg.Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newHash := hashToken(refreshToken)

	if oldHash == "" {
		if err := s.storage.SetRefreshToken(ctx, user.ID, newHash); err != nil {
			lg.Error("set_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		swapped, err := s.storage.RotateRefreshToken(ctx, user.ID, oldHash, newHash)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			lg.Error("rotate_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !swapped {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}
	}

	// Кэш — best-effort зеркало текущей сессии; ошибка не фатальна.
	// Но протухшую запись оставлять нельзя: она не должна пережить
	// успешную запись в БД, поэтому при неудачном Set вычищаем ключ.
	if s.scache != nil {
		if err := s.scache.Set(ctx, user.ID, newHash, s.cfg.RefreshTokenTTL); err != nil {
			lg.Warn("session_cache_set_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			if derr := s.scache.Del(ctx, user.ID); derr != nil {
				lg.Warn("session_cache_del_failed",
					slog.String("op", op),
					slog.String("err", derr.Error()),
				)
			}
		}
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, nil
}
