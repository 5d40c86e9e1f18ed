package postgres

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-books-api/internal/models"
)

// SaveBook добавляет книгу в каталог.
func (s *Storage) SaveBook(ctx context.Context, book *models.Book) error {
	const op = "storage.postgres.SaveBook"

	query := `
		INSERT INTO books(id, title, author, genre, year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.Genre,
		book.Year,
		book.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Books возвращает каталог целиком в порядке добавления.
func (s *Storage) Books(ctx context.Context) ([]models.Book, error) {
	const op = "storage.postgres.Books"

	query := `
		SELECT id, title, author, genre, year, created_at
		FROM books
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Year, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}
