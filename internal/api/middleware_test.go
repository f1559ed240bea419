package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/search"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid token sets the account on the context", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		var gotAccountId int
		var gotOk bool
		handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			gotAccountId, gotOk = AccountId(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, s, 7))
		rec := httptest.NewRecorder()

		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gotOk, "expected account id on the request context")
		assert.Equal(t, 7, gotAccountId)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store", "expected authenticated responses to be uncacheable")
	})

	t.Run("missing header", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected handler not to be called")
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected handler not to be called")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected handler not to be called")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestErrorHandler(t *testing.T) {
	s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

	handler := s.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code, "expected panics to surface as 500")
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}
