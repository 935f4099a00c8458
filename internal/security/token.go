package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Role values carried in the top-level role claim.
const (
	RoleAuthenticated = "authenticated"
	RoleServiceRole   = "service_role"

	// AppRoleAdmin is the app_metadata role of platform administrators.
	AppRoleAdmin = "admin"
)

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// UserClaims are the claims of a Supabase-style access token. sub is the user id.
type UserClaims struct {
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (c *UserClaims) UserID() string {
	return c.Subject
}

func (c *UserClaims) IsAdmin() bool {
	return c.AppMetadata.Role == AppRoleAdmin
}

func (c *UserClaims) IsServiceRole() bool {
	return c.Role == RoleServiceRole
}

type TokenManager interface {
	GenerateAccessToken(userID, email string, admin bool) (string, error)
	GenerateServiceToken() (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		ttl:    time.Hour,
	}
}

func (m *tokenManager) sign(claims UserClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(userID, email string, admin bool) (string, error) {
	claims := UserClaims{
		Email: email,
		Role:  RoleAuthenticated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Audience:  jwt.ClaimStrings{RoleAuthenticated},
			ID:        uuid.NewString(),
		},
	}
	if admin {
		claims.AppMetadata.Role = AppRoleAdmin
	}
	return m.sign(claims)
}

// GenerateServiceToken issues the token the scheduler presents to the cleanup functions.
func (m *tokenManager) GenerateServiceToken() (string, error) {
	return m.sign(UserClaims{
		Role: RoleServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	})
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" && !claims.IsServiceRole() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
