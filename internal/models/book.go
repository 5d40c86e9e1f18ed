package models

import (
	"time"

	"github.com/google/uuid"
)

// Book — запись каталога книг.
type Book struct {
	ID        uuid.UUID
	Title     string
	Author    string
	Genre     string
	Year      int
	CreatedAt time.Time
}
