package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/go-books-api/internal/models"
	"github.com/pribylovaa/go-books-api/internal/pkg/log"

	"github.com/google/uuid"
)

// ListBooks возвращает каталог книг.
// Доступ любого аутентифицированного пользователя с валидной ролью;
// проверка роли выполняется на уровне HTTP-хендлера.
func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	const op = "service.books.ListBooks"

	books, err := s.storage.Books(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

// AddBook добавляет книгу в каталог.
// Авторизация (роль admin) выполняется на уровне HTTP-хендлера.
func (s *Service) AddBook(ctx context.Context, title, author, genre string, year int) (*models.Book, error) {
	const op = "service.books.AddBook"

	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidBook)
	}

	book := &models.Book{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Genre:     strings.TrimSpace(genre),
		Year:      year,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.storage.SaveBook(ctx, book); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("book_added",
		slog.String("op", op),
		slog.String("book_id", book.ID.String()),
		slog.String("title", book.Title),
	)

	return book, nil
}
