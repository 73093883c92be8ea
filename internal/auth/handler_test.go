package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, *TokenIssuer) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer := NewTokenIssuer("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(NewAdminRepository(db), issuer, false, logger), mock, issuer
}

func adminColumns() []string {
	return []string{"id", "name", "email", "password_hash", "phone"}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestHandler_HandleRegister(t *testing.T) {
	t.Run("registers and issues a session", func(t *testing.T) {
		handler, mock, issuer := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("new@example.com").
			WillReturnRows(sqlmock.NewRows(adminColumns()))
		mock.ExpectExec("INSERT INTO admins").
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := `{"name":"New Admin","email":"new@example.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleRegister(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		claims, err := issuer.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", claims.Email)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "token", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		handler, mock, _ := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("taken@example.com").
			WillReturnRows(sqlmock.NewRows(adminColumns()).
				AddRow("a1", "Existing", "taken@example.com", "hash", nil))

		body := `{"name":"New Admin","email":"taken@example.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleRegister(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "email already exists")
	})

	t.Run("requires all fields", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"x@example.com"}`))
		rec := httptest.NewRecorder()

		handler.HandleRegister(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_HandleLogin(t *testing.T) {
	t.Run("logs in with valid credentials", func(t *testing.T) {
		handler, mock, _ := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows(adminColumns()).
				AddRow("a1", "Admin", "admin@example.com", mustHash(t, "secret123"), nil))

		body := `{"email":"admin@example.com","password":"secret123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleLogin(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		handler, mock, _ := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows(adminColumns()).
				AddRow("a1", "Admin", "admin@example.com", mustHash(t, "secret123"), nil))
		mock.ExpectQuery("FROM admins").
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows(adminColumns()))

		wrongPassword := httptest.NewRecorder()
		handler.HandleLogin(wrongPassword, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`)))

		unknownEmail := httptest.NewRecorder()
		handler.HandleLogin(unknownEmail, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ghost@example.com","password":"secret123"}`)))

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})
}

func TestHandler_HandleMe(t *testing.T) {
	handler, mock, _ := newTestHandler(t)

	mock.ExpectQuery("FROM admins").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(adminColumns()).
			AddRow("a1", "Admin", "admin@example.com", "hash", "555-0100"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), claimsKey, &Claims{AdminID: "a1"}))
	rec := httptest.NewRecorder()

	handler.HandleMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin@example.com")
	assert.NotContains(t, rec.Body.String(), "hash", "password hash must never be serialized")
}

func TestHandler_HandleProfile(t *testing.T) {
	t.Run("changes password after verifying the current one", func(t *testing.T) {
		handler, mock, _ := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("a1").
			WillReturnRows(sqlmock.NewRows(adminColumns()).
				AddRow("a1", "Admin", "admin@example.com", mustHash(t, "old-pass"), nil))
		mock.ExpectExec("UPDATE admins").
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := `{"currentPassword":"old-pass","newPassword":"new-pass","name":"Renamed"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/profile", strings.NewReader(body))
		req = req.WithContext(context.WithValue(req.Context(), claimsKey, &Claims{AdminID: "a1"}))
		rec := httptest.NewRecorder()

		handler.HandleProfile(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Renamed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects wrong current password", func(t *testing.T) {
		handler, mock, _ := newTestHandler(t)

		mock.ExpectQuery("FROM admins").
			WithArgs("a1").
			WillReturnRows(sqlmock.NewRows(adminColumns()).
				AddRow("a1", "Admin", "admin@example.com", mustHash(t, "old-pass"), nil))

		body := `{"currentPassword":"wrong","newPassword":"new-pass"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/profile", strings.NewReader(body))
		req = req.WithContext(context.WithValue(req.Context(), claimsKey, &Claims{AdminID: "a1"}))
		rec := httptest.NewRecorder()

		handler.HandleProfile(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "current password is incorrect")
	})
}

func TestHandler_HandleLogout(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()

	handler.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
