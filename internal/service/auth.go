package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	claimUserID  = "user_id"
	tokenTTL     = 24 * time.Hour
	bearerPrefix = "Bearer "
)

type AuthService interface {
	GenerateToken(playerID string) (string, error)
	Verify(token string) (string, error)
}

type authServiceImpl struct {
	secretKey []byte
	now       func() time.Time
}

func NewAuthService(secretKey string) AuthService {
	return &authServiceImpl{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (that *authServiceImpl) GenerateToken(playerID string) (string, error) {
	claims := jwt.MapClaims{}
	claims[claimUserID] = playerID
	claims["exp"] = that.now().Add(tokenTTL).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify - checks an HS256 token and returns its user_id claim as the player identity.
func (that *authServiceImpl) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperror.ErrMissingToken
	}

	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return that.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(that.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	switch userID := claims[claimUserID].(type) {
	case string:
		if userID != "" {
			return userID, nil
		}
	case float64:
		return strconv.FormatFloat(userID, 'f', -1, 64), nil
	}

	return "", fmt.Errorf("%w: missing %s claim", apperror.ErrInvalidToken, claimUserID)
}

// BearerToken - extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.ErrMissingToken
	}

	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: authorization header is not a bearer token", apperror.ErrInvalidToken)
	}

	return token, nil
}
