package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-books-api/internal/config"
	"github.com/pribylovaa/go-books-api/internal/service"
)

// Handlers агрегирует зависимости HTTP-хендлеров.
type Handlers struct {
	svc  *service.Service
	auth config.AuthConfig
}

func New(svc *service.Service, auth config.AuthConfig) *Handlers {
	return &Handlers{svc: svc, auth: auth}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через httperr.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// messageResponse — ответ вида {message}.
type messageResponse struct {
	Message string `json:"message"`
}
