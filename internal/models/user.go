package models

import (
	"time"

	"github.com/google/uuid"
)

// Role — роль пользователя; закрытое множество значений.
// Проверяется на каждой защищённой операции на стороне сервера,
// независимо от того, что заявлено в токене клиента.
type Role string

const (
	// RoleUser — обычный пользователь: чтение каталога.
	RoleUser Role = "user"
	// RoleAdmin — администратор: чтение и пополнение каталога.
	RoleAdmin Role = "admin"
)

// Valid сообщает, входит ли роль в закрытое множество.
// Неизвестная роль не проходит ни одну защищённую операцию.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User — модель пользователя в системе.
//
// RefreshTokenHash — хэш текущего refresh-токена (SHA-256, base64url);
// у пользователя в каждый момент времени не более одной живой сессии.
// Пустая строка означает отсутствие активной сессии.
type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	Role             Role
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
