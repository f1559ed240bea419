package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gigpig-app/gigchat/internal/database"
	"github.com/gigpig-app/gigchat/internal/types"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultJwtExpiration = time.Hour * 24

	accountIdClaim = "account-id"
	expClaim       = "exp"
)

type contextKey string

const accountIdKey contextKey = "account-id"

func AccountId(ctx context.Context) (int, bool) {
	accountId, ok := ctx.Value(accountIdKey).(int)

	return accountId, ok
}

func WithAccountId(ctx context.Context, accountId int) context.Context {
	return context.WithValue(ctx, accountIdKey, accountId)
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *GigChatApp) createJwtForSession(account types.Account, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		accountIdClaim: account.Id,
		expClaim:       time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *GigChatApp) extractAccountIdFromToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	accountId, ok := claims[accountIdClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid account id claim")
	}

	return int(accountId), nil
}

// authenticateToken resolves a raw token string to an active account.
// Used by the websocket endpoints, which carry the token as a query
// parameter since browser clients cannot set headers on an upgrade
// request.
func (s *GigChatApp) authenticateToken(tokenString string) (types.Account, error) {
	accountId, err := s.extractAccountIdFromToken(tokenString)
	if err != nil {
		return types.Account{}, err
	}

	account, err := s.db.GetAccountById(accountId)
	if err != nil {
		return types.Account{}, fmt.Errorf("get account: %w", err)
	}
	if !account.Active {
		return types.Account{}, fmt.Errorf("account %d is not active", accountId)
	}

	return types.Account{
		Id:           account.Id,
		Username:     account.Username,
		EmailAddress: account.EmailAddress,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}, nil
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string        `json:"token"`
	Account types.Account `json:"account"`
}

func (s *GigChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newAccount, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Account{
		Id:           newAccount.Id,
		Username:     newAccount.Username,
		EmailAddress: newAccount.EmailAddress,
		CreatedAt:    newAccount.CreatedAt,
		UpdatedAt:    newAccount.UpdatedAt,
	})
}

func (s *GigChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbAccount, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !dbAccount.Active || !verifyPassword(dbAccount.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account := types.Account{
		Id:           dbAccount.Id,
		Username:     dbAccount.Username,
		EmailAddress: dbAccount.EmailAddress,
		CreatedAt:    dbAccount.CreatedAt,
		UpdatedAt:    dbAccount.UpdatedAt,
	}

	token, err := s.createJwtForSession(account, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, LoginResponse{Token: token, Account: account})
}

func (s *GigChatApp) session(w http.ResponseWriter, r *http.Request) {
	accountId, ok := AccountId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountById(accountId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.Account{
		Id:           account.Id,
		Username:     account.Username,
		EmailAddress: account.EmailAddress,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	})
}
