package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-books-api/internal/models"
	"github.com/pribylovaa/go-books-api/internal/service"
	"github.com/pribylovaa/go-books-api/internal/transport/http/httperr"
	"github.com/pribylovaa/go-books-api/internal/transport/http/middleware"
)

type bookItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre,omitempty"`
	Year      int    `json:"year,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type addBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
	Year   int    `json:"year"`
}

// ListBooks отдаёт каталог книг.
// Роли достаточно любой из закрытого множества; неизвестная роль
// (например, из токена, выданного до смены схемы ролей) не проходит.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok || !claims.Role.Valid() {
		httperr.WriteError(w, r, service.ErrNotAuthorized)
		return
	}

	books, err := h.svc.ListBooks(r.Context())
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	out := make([]bookItem, 0, len(books))
	for _, b := range books {
		out = append(out, toBookItem(b))
	}

	writeJSON(w, http.StatusOK, out)
}

// AddBook добавляет книгу в каталог. Только для роли admin:
// проверка выполняется здесь, по серверным claims, а не по данным клиента.
func (h *Handlers) AddBook(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok || claims.Role != models.RoleAdmin {
		httperr.WriteError(w, r, service.ErrNotAuthorized)
		return
	}

	var in addBookRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteCode(w, r, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	if _, err := h.svc.AddBook(r.Context(), in.Title, in.Author, in.Genre, in.Year); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "book added successfully"})
}

func toBookItem(b models.Book) bookItem {
	return bookItem{
		ID:        b.ID.String(),
		Title:     b.Title,
		Author:    b.Author,
		Genre:     b.Genre,
		Year:      b.Year,
		CreatedAt: b.CreatedAt.Unix(),
	}
}
