package auth

import (
	"context"
	"errors"

	accountdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/account"
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT token claims
type Claims struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates access tokens.
type TokenGenerator interface {
	GenerateAccessToken(accountID int64, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AccountRepository interface {
	GetAccountByID(ctx context.Context, id int64) (*accountdm.Account, error)
}

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")
)
