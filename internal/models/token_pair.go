package models

import "time"

// TokenPair — пара токенов, выдаваемая при логине и ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API; на сервере
//     не хранится и проверяется только по подписи и сроку;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары; на сервере
//     хранится хэш последнего выданного значения;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — JWT для обновления пары.
	RefreshToken string
	// AccessExpiresAt — время истечения действия access-токена (UTC).
	AccessExpiresAt time.Time
}
