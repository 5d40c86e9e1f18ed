package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-books-api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SetRefreshToken безусловно перезаписывает хэш refresh-токена пользователя.
// Прежняя сессия (если была) после этого недействительна.
func (s *Storage) SetRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error {
	const op = "storage.postgres.SetRefreshToken"

	query := `
		UPDATE users
		SET refresh_token_hash = $2, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, userID, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken атомарно заменяет oldHash на newHash.
// Одиночный UPDATE с условием по текущему значению даёт compare-and-swap
// на стороне БД: из двух конкурентных ротаций одного и того же токена
// успешной окажется ровно одна.
//
// Возвращает:
//
//	(true, nil)  — текущее значение совпало и заменено;
//	(false, nil) — значение не совпало (устаревший/ротированный токен);
//	(false, ErrNotFound) — пользователь не найден.
func (s *Storage) RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldHash, newHash string) (bool, error) {
	const op = "storage.postgres.RotateRefreshToken"

	const upd = `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2
		RETURNING id
	`

	var id uuid.UUID
	err := s.db.QueryRow(ctx, upd, userID, oldHash, newHash).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT 1
		FROM users
		WHERE id = $1
	`

	var one int
	err = s.db.QueryRow(ctx, sel, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// ClearRefreshToken сбрасывает сессию пользователя (logout).
func (s *Storage) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.ClearRefreshToken"

	query := `
		UPDATE users
		SET refresh_token_hash = NULL, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
