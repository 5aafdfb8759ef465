package crypto

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"wordchain/domain"

	"github.com/golang-jwt/jwt/v5"
)

const TokenIssuer = "wordchain"

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
	parser    *jwt.Parser
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
		parser:    jwt.NewParser(jwt.WithIssuer(TokenIssuer), jwt.WithExpirationRequired()),
	}
}

// Generate signs a session token for the user, valid for maxAge from now.
func (m *JWTManager) Generate(id int64, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   strconv.FormatInt(id, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}
	return signed, nil
}

func (m *JWTManager) keyFor(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, domain.ErrInvalidSigningAlg
	}
	return m.secretKey, nil
}

// Verify returns the user id the token was issued to.
func (m *JWTManager) Verify(tokenString string) (int64, error) {
	var claims jwt.RegisteredClaims
	if _, err := m.parser.ParseWithClaims(tokenString, &claims, m.keyFor); err != nil {
		return 0, verificationError(err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrCorruptedToken
	}
	return id, nil
}

func verificationError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSigningAlg):
		return domain.ErrInvalidSigningAlg
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrInvalidTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domain.ErrCorruptedToken
	default:
		return fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
	}
}
