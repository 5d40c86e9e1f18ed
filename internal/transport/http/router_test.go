package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/go-books-api/internal/config"
	"github.com/pribylovaa/go-books-api/internal/models"
	"github.com/pribylovaa/go-books-api/internal/service"
	"github.com/pribylovaa/go-books-api/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Сквозные тесты HTTP-поверхности: роутер + мидлвары + хендлеры + сервис
// поверх потокобезопасного in-memory хранилища.

// memStorage — in-memory реализация storage.Storage для сквозных тестов.
type memStorage struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	books   []models.Book
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *memStorage) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := m.byEmail[key]; ok {
		return storage.ErrAlreadyExists
	}

	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[key] = user.ID
	return nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *m.users[id]
	return &cp, nil
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *u
	return &cp, nil
}

func (m *memStorage) SetRefreshToken(_ context.Context, userID uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return storage.ErrNotFound
	}

	u.RefreshTokenHash = hash
	return nil
}

func (m *memStorage) RotateRefreshToken(_ context.Context, userID uuid.UUID, oldHash, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return false, storage.ErrNotFound
	}

	if u.RefreshTokenHash != oldHash {
		return false, nil
	}

	u.RefreshTokenHash = newHash
	return true, nil
}

func (m *memStorage) ClearRefreshToken(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return storage.ErrNotFound
	}

	u.RefreshTokenHash = ""
	return nil
}

func (m *memStorage) SaveBook(_ context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books = append(m.books, *book)
	return nil
}

func (m *memStorage) Books(_ context.Context) ([]models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Book, len(m.books))
	copy(out, m.books)
	return out, nil
}

func (m *memStorage) Close() {}

var _ storage.Storage = (*memStorage)(nil)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "e2e-access-secret",
		RefreshSecret:   "e2e-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
		Issuer:          "books-api",
		Audience:        []string{"books-api"},
	}
}

// newTestServer — поднимает роутер поверх in-memory хранилища.
func newTestServer(t *testing.T) (*httptest.Server, *memStorage) {
	t.Helper()

	st := newMemStorage()
	svc := service.New(st, testAuthCfg())

	srv := httptest.NewServer(NewRouter(svc, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 5 * time.Second,
		Auth:    testAuthCfg(),
	}))
	t.Cleanup(srv.Close)

	return srv, st
}

// seedAdmin — добавляет администратора напрямую в хранилище:
// публичной регистрации админов нет.
func seedAdmin(t *testing.T, st *memStorage, email, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.SaveUser(context.Background(), &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func postJSON(t *testing.T, url string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// refreshCookie — достаёт куку refreshToken из ответа.
func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	t.Fatal("refreshToken cookie not found")
	return nil
}

type loginBody struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	ExpiresAt   int64  `json:"expires_at"`
}

type refreshBody struct {
	AccessToken string `json:"access_token"`
}

// login — логин и извлечение access-токена + refresh-куки.
func login(t *testing.T, srv *httptest.Server, email, password string) (string, *http.Cookie) {
	t.Helper()

	resp := postJSON(t, srv.URL+"/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := refreshCookie(t, resp)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/refresh_token", cookie.Path)

	var body loginBody
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)

	return body.AccessToken, cookie
}

func getBooks(t *testing.T, srv *httptest.Server, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/books", nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// TestE2E_RegisterLoginBrowseRefresh — основной сценарий жизненного цикла:
// регистрация, вход, доступ к каталогу, ротация refresh-токена,
// отказ повторно предъявленному старому токену.
func TestE2E_RegisterLoginBrowseRefresh(t *testing.T) {
	srv, _ := newTestServer(t)

	const (
		email    = "reader@example.com"
		password = "Str0ng!pass"
	)

	// Регистрация.
	resp := postJSON(t, srv.URL+"/register", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Повторная регистрация того же email.
	resp = postJSON(t, srv.URL+"/register", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Вход.
	access, refresh := login(t, srv, email, password)

	// Каталог доступен аутентифицированному пользователю.
	booksResp := getBooks(t, srv, access)
	require.Equal(t, http.StatusOK, booksResp.StatusCode)
	var books []map[string]any
	decodeBody(t, booksResp, &books)
	require.Empty(t, books)

	// Обычному пользователю нельзя добавлять книги.
	resp = postJSON(t, srv.URL+"/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode) // нет bearer-токена
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/books", strings.NewReader(`{"title":"Dune","author":"Frank Herbert"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	forbidden, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)
	forbidden.Body.Close()

	// Ротация: новый access работает, кука обновлена.
	resp = postJSON(t, srv.URL+"/refresh_token", nil, refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotatedCookie := refreshCookie(t, resp)
	var rotated refreshBody
	decodeBody(t, resp, &rotated)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, refresh.Value, rotatedCookie.Value)

	booksResp = getBooks(t, srv, rotated.AccessToken)
	require.Equal(t, http.StatusOK, booksResp.StatusCode)
	booksResp.Body.Close()

	// Старый refresh-токен после ротации недействителен: тот же 200,
	// но access-токен пуст — причину отказа снаружи не различить.
	resp = postJSON(t, srv.URL+"/refresh_token", nil, refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replay refreshBody
	decodeBody(t, resp, &replay)
	require.Empty(t, replay.AccessToken)

	// Новый (текущий) токен продолжает работать.
	resp = postJSON(t, srv.URL+"/refresh_token", nil, rotatedCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var next refreshBody
	decodeBody(t, resp, &next)
	require.NotEmpty(t, next.AccessToken)
}

// TestE2E_AdminAddsBook — только admin пополняет каталог; добавленная книга
// видна любому аутентифицированному пользователю.
func TestE2E_AdminAddsBook(t *testing.T) {
	srv, st := newTestServer(t)

	seedAdmin(t, st, "admin@example.com", "Adm1n!pass")

	adminAccess, _ := login(t, srv, "admin@example.com", "Adm1n!pass")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/books",
		strings.NewReader(`{"title":"Dune","author":"Frank Herbert","genre":"sci-fi","year":1965}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminAccess)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Книга видна обычному пользователю.
	reg := postJSON(t, srv.URL+"/register", map[string]string{"email": "reader@example.com", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusCreated, reg.StatusCode)
	reg.Body.Close()

	access, _ := login(t, srv, "reader@example.com", "Str0ng!pass")

	booksResp := getBooks(t, srv, access)
	require.Equal(t, http.StatusOK, booksResp.StatusCode)

	var books []map[string]any
	decodeBody(t, booksResp, &books)
	require.Len(t, books, 1)
	require.Equal(t, "Dune", books[0]["title"])
	require.Equal(t, "Frank Herbert", books[0]["author"])
}

// signAccessToken — подписывает access-токен с произвольной ролью,
// минуя сервис: так выглядит токен, выданный до смены схемы ролей.
func signAccessToken(t *testing.T, cfg config.AuthConfig, role string) string {
	t.Helper()

	now := time.Now().UTC()
	uid := uuid.NewString()
	claims := jwt.MapClaims{
		"uid":  uid,
		"role": role,
		"iss":  cfg.Issuer,
		"aud":  cfg.Audience,
		"sub":  uid,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
	require.NoError(t, err)
	return signed
}

// TestE2E_UnknownRoleRejected — роль вне закрытого множества {user, admin}
// не проходит ни одну защищённую операцию, даже при валидной подписи токена.
func TestE2E_UnknownRoleRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	token := signAccessToken(t, testAuthCfg(), "ghost")

	booksResp := getBooks(t, srv, token)
	require.Equal(t, http.StatusForbidden, booksResp.StatusCode)
	booksResp.Body.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/books",
		strings.NewReader(`{"title":"Dune","author":"Frank Herbert"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Пустая роль — тот же отказ.
	empty := signAccessToken(t, testAuthCfg(), "")

	booksResp = getBooks(t, srv, empty)
	require.Equal(t, http.StatusForbidden, booksResp.StatusCode)
	booksResp.Body.Close()
}

// TestE2E_LoginInvalidatesPreviousSession — у пользователя одна живая
// refresh-сессия: повторный логин делает прежний refresh-токен бесполезным.
func TestE2E_LoginInvalidatesPreviousSession(t *testing.T) {
	srv, _ := newTestServer(t)

	reg := postJSON(t, srv.URL+"/register", map[string]string{"email": "reader@example.com", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusCreated, reg.StatusCode)
	reg.Body.Close()

	_, first := login(t, srv, "reader@example.com", "Str0ng!pass")
	_, second := login(t, srv, "reader@example.com", "Str0ng!pass")

	// Первый refresh-токен вытеснен вторым логином.
	resp := postJSON(t, srv.URL+"/refresh_token", nil, first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stale refreshBody
	decodeBody(t, resp, &stale)
	require.Empty(t, stale.AccessToken)

	resp = postJSON(t, srv.URL+"/refresh_token", nil, second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var live refreshBody
	decodeBody(t, resp, &live)
	require.NotEmpty(t, live.AccessToken)
}

// TestE2E_Logout — logout чистит куку и серверную сессию; старый refresh
// после него не работает.
func TestE2E_Logout(t *testing.T) {
	srv, _ := newTestServer(t)

	reg := postJSON(t, srv.URL+"/register", map[string]string{"email": "reader@example.com", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusCreated, reg.StatusCode)
	reg.Body.Close()

	_, refresh := login(t, srv, "reader@example.com", "Str0ng!pass")

	resp := postJSON(t, srv.URL+"/logout", nil, refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := refreshCookie(t, resp)
	require.Empty(t, cleared.Value)
	require.Less(t, cleared.MaxAge, 0)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/refresh_token", nil, refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var after refreshBody
	decodeBody(t, resp, &after)
	require.Empty(t, after.AccessToken)
}

// TestE2E_ValidationAndErrors — ошибки формата и аутентификации на границе HTTP.
func TestE2E_ValidationAndErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	// Битый JSON.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/register", strings.NewReader("{broken"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Слабый пароль.
	resp = postJSON(t, srv.URL+"/register", map[string]string{"email": "reader@example.com", "password": "weak"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Неверные креды.
	resp = postJSON(t, srv.URL+"/login", map[string]string{"email": "ghost@example.com", "password": "Str0ng!pass"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Каталог без токена.
	booksResp := getBooks(t, srv, "")
	require.Equal(t, http.StatusUnauthorized, booksResp.StatusCode)
	booksResp.Body.Close()

	// Refresh без куки — валидное "не залогинен", 200 с пустым токеном.
	resp = postJSON(t, srv.URL+"/refresh_token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var anon refreshBody
	decodeBody(t, resp, &anon)
	require.Empty(t, anon.AccessToken)

	// X-Request-Id присутствует в каждом ответе.
	resp = postJSON(t, srv.URL+"/refresh_token", nil)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	resp.Body.Close()
}
