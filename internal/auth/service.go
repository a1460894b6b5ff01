package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/golang-jwt/jwt/v5"
)

// Service resolves bearer tokens into accounts. Issuing tokens to end users is
// someone else's job; GenerateAccessToken exists for tooling and tests.
type Service struct {
	accounts       AccountRepository
	tokenGenerator TokenGenerator
	logger         *slog.Logger
}

func NewService(accounts AccountRepository, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		accounts:       accounts,
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

// Authenticate validates the token and checks the account is still active.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*internal.Account, error) {
	if tokenString == "" {
		return nil, internal.ErrAuthRequired
	}

	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	account, err := s.accounts.GetAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, internal.ErrInvalidToken
		}
		s.logger.Error("failed to load account", "account_id", claims.AccountID, "error", err)
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if !account.IsActive {
		s.logger.Warn("token presented for inactive account", "account_id", account.ID)
		return nil, internal.NewForbiddenError(ErrAccountInactive.Error(), internal.ErrCodeAuthRequired)
	}

	return &internal.Account{ID: account.ID, Email: account.Email}, nil
}

// JWTTokenGenerator signs HS256 access tokens.
type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
		now:    time.Now,
	}
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(accountID int64, email string) (string, error) {
	issuedAt := j.now()

	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Subject:   fmt.Sprintf("%d", accountID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
