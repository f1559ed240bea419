package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gigpig-app/gigchat/internal/broker"
	"github.com/gigpig-app/gigchat/internal/config"
	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/search"
	"github.com/gigpig-app/gigchat/internal/server"
	"github.com/gigpig-app/gigchat/internal/stats"
	"github.com/gigpig-app/gigchat/internal/testutil"
	"github.com/gigpig-app/gigchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// base64 of a throwaway signing secret
const testSigningSecret = "dGVzdC1zaWduaW5nLXNlY3JldA=="

func newTestApp(t *testing.T, db database.ChatRepository, notifier search.Notifier) (*GigChatApp, *http.ServeMux) {
	t.Helper()

	logger := testutil.TestLogger(t)

	cfg, err := config.NewConfig("localhost:8000", "test-dsn", testSigningSecret, []string{"http://localhost:3000"})
	if err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Maybe()
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	cs, err := server.NewChatServer(logger, db, broker.NewMemoryBroker(logger), nil, notifier, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	go cs.Run()
	t.Cleanup(func() { cs.Shutdown(context.Background()) })

	mux := http.NewServeMux()
	return NewGigChatApp(mux, logger, cs, db, notifier, cfg), mux
}

func sessionToken(t *testing.T, s *GigChatApp, accountId int) string {
	t.Helper()

	token, err := s.createJwtForSession(types.Account{Id: accountId}, defaultJwtExpiration)
	if err != nil {
		t.Fatalf("failed to create session token: %v", err)
	}
	return token
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("hunter2")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "hunter2", hash, "expected hash to differ from plaintext")

	assert.True(t, verifyPassword(hash, "hunter2"), "expected matching password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected wrong password to fail verification")
}

func TestJwtRoundTrip(t *testing.T) {
	s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

	token, err := s.createJwtForSession(types.Account{Id: 42}, time.Hour)
	assert.NoError(t, err, "expected no error creating token")

	accountId, err := s.extractAccountIdFromToken(token)
	assert.NoError(t, err, "expected no error extracting account id")
	assert.Equal(t, 42, accountId, "expected account id to round trip")
}

func TestExtractAccountIdFromToken_Invalid(t *testing.T) {
	s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.extractAccountIdFromToken("not-a-token")
		assert.Error(t, err, "expected error for malformed token")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := s.createJwtForSession(types.Account{Id: 1}, -time.Hour)
		assert.NoError(t, err)

		_, err = s.extractAccountIdFromToken(token)
		assert.Error(t, err, "expected error for expired token")
	})
}

func TestAuthenticateToken(t *testing.T) {
	t.Run("active account", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountById", 1).Return(database.Account{Id: 1, Username: "alice", Active: true}, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		account, err := s.authenticateToken(sessionToken(t, s, 1))
		assert.NoError(t, err, "expected no error authenticating token")
		assert.Equal(t, 1, account.Id)
		assert.Equal(t, "alice", account.Username)
	})

	t.Run("deactivated account", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountById", 1).Return(database.Account{Id: 1, Active: false}, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		_, err := s.authenticateToken(sessionToken(t, s, 1))
		assert.Error(t, err, "expected error for deactivated account")
	})

	t.Run("bad token", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		_, err := s.authenticateToken("garbage")
		assert.Error(t, err, "expected error for bad token")
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
			return p.Username == "alice" && p.EmailAddress == "alice@example.com" &&
				verifyPassword(p.PasswordHash, "hunter2")
		})).Return(database.Account{Id: 1, Username: "alice", EmailAddress: "alice@example.com", Active: true}, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "hunter2"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.createAccount(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, "expected 201 response")

		var account types.Account
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&account))
		assert.Equal(t, 1, account.Id)
		assert.Equal(t, "alice", account.Username)
	})

	t.Run("missing fields", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		body, _ := json.Marshal(RegisterRequest{Email: "alice@example.com"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.createAccount(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "expected 400 for missing fields")
	})

	t.Run("invalid body", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()

		s.createAccount(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "expected 400 for invalid body")
	})
}

func TestLogin(t *testing.T) {
	passwordHash, err := hashPassword("hunter2")
	assert.NoError(t, err)

	dbAccount := database.Account{
		Id:           1,
		Username:     "alice",
		EmailAddress: "alice@example.com",
		PasswordHash: passwordHash,
		Active:       true,
	}

	t.Run("successful login", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", "alice@example.com").Return(dbAccount, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(LoginRequest{Email: "alice@example.com", Password: "hunter2"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.login(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "expected 200 response")

		var lr LoginResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&lr))
		assert.NotEmpty(t, lr.Token, "expected a session token")
		assert.Equal(t, 1, lr.Account.Id)

		accountId, err := s.extractAccountIdFromToken(lr.Token)
		assert.NoError(t, err, "expected issued token to be valid")
		assert.Equal(t, 1, accountId)
	})

	t.Run("wrong password", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", "alice@example.com").Return(dbAccount, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(LoginRequest{Email: "alice@example.com", Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.login(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected 401 for wrong password")
	})

	t.Run("deactivated account", func(t *testing.T) {
		inactive := dbAccount
		inactive.Active = false

		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", "alice@example.com").Return(inactive, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(LoginRequest{Email: "alice@example.com", Password: "hunter2"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.login(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected 401 for deactivated account")
	})

	t.Run("unknown email", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", "missing@example.com").Return(database.Account{}, sql.ErrNoRows).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(LoginRequest{Email: "missing@example.com", Password: "hunter2"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.login(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "expected 404 for unknown email")
	})

	t.Run("db error", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", "alice@example.com").Return(database.Account{}, errors.New("db error")).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		body, _ := json.Marshal(LoginRequest{Email: "alice@example.com", Password: "hunter2"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		s.login(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, "expected 500 for db error")
	})
}

func TestSession(t *testing.T) {
	t.Run("returns the caller's account", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountById", 1).Return(database.Account{Id: 1, Username: "alice", Active: true}, nil).Once()

		s, _ := newTestApp(t, db, search.NoopNotifier{})

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req = req.WithContext(WithAccountId(req.Context(), 1))
		rec := httptest.NewRecorder()

		s.session(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var account types.Account
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&account))
		assert.Equal(t, "alice", account.Username)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s, _ := newTestApp(t, &database.MockChatRepository{}, search.NoopNotifier{})

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		rec := httptest.NewRecorder()

		s.session(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected 401 without session context")
	})
}
