package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"uturn/internal/services"
)

// Claims is the token payload: the subject is the caller id.
type Claims struct {
	Role services.Role `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.Claims = (*Claims)(nil)

var (
	errUnknownRole = errors.New("unknown role")
	errNoSecret    = errors.New("token signing secret is not configured")
)

// IssueToken signs an HS256 token for userID with the given role.
func IssueToken(secret, userID string, role services.Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errNoSecret
	}
	now := time.Now().UTC()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of an HS256 token.
func ParseToken(secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case services.RoleVendor, services.RoleDriver, services.RoleAdmin:
	default:
		return nil, errUnknownRole
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// JWTAuth authenticates callers with a bearer token signed with secret.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := ParseToken(secret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		setCaller(c, claims.Subject, claims.Role)
		c.Next()
	}
}
