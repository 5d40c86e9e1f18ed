package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-books-api/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/книга).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionStorage управляет единственной refresh-сессией пользователя.
// Хранится только хэш токена; сравнение значений сводится к сравнению хэшей.
type SessionStorage interface {
	// SetRefreshToken безусловно перезаписывает текущий хэш refresh-токена
	// (логин: прежняя сессия, если была, становится недействительной).
	SetRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error
	// RotateRefreshToken атомарно заменяет oldHash на newHash (compare-and-swap).
	// Возвращает false, если текущее значение не совпало с oldHash —
	// предъявлен устаревший или уже ротированный токен.
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldHash, newHash string) (bool, error)
	// ClearRefreshToken сбрасывает сессию пользователя (logout).
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error
}

// BookStorage выполняет операции над каталогом книг.
type BookStorage interface {
	// SaveBook добавляет книгу в каталог.
	SaveBook(ctx context.Context, book *models.Book) error
	// Books возвращает каталог целиком.
	Books(ctx context.Context) ([]models.Book, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	BookStorage
	Close()
}
