package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"agency_portal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextKeyActorID holds the acting user id in the gin context.
	ContextKeyActorID = "actorID"
	// HeaderActorID identifies the actor when JWT auth is disabled.
	HeaderActorID = "X-Actor-ID"
)

var errMissingActor = pkg.NewDomainErrorSimple("UNAUTHORIZED", "Actor identity required", http.StatusUnauthorized)

// Claims is the JWT body issued by the portal's identity service.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ActorMiddleware resolves who is calling. With a secret it requires an
// HS256 bearer token carrying user_id; without one it trusts X-Actor-ID,
// which is only meant for local runs.
func ActorMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor string
		if jwtSecret == "" {
			actor = strings.TrimSpace(c.GetHeader(HeaderActorID))
		} else {
			claims, err := claimsFromHeader(c.GetHeader("Authorization"), jwtSecret)
			if err != nil {
				appErr := pkg.NewDomainError("UNAUTHORIZED", "Invalid or expired token", err, http.StatusUnauthorized)
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
				return
			}
			actor = claims.UserID
		}
		if actor == "" {
			c.AbortWithStatusJSON(errMissingActor.HTTPStatus, errMissingActor.ToHTTPError())
			return
		}
		c.Set(ContextKeyActorID, actor)
		c.Next()
	}
}

// ActorID returns the actor resolved by ActorMiddleware.
func ActorID(c *gin.Context) string {
	return c.GetString(ContextKeyActorID)
}

func claimsFromHeader(header, secret string) (*Claims, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("authorization header format must be Bearer {token}")
	}
	return ValidateJWT(parts[1], secret)
}

// ValidateJWT verifies a token string and returns its claims.
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid JWT")
	}
	return claims, nil
}

// GenerateJWT signs a token for userID. Used by tests and local tooling.
func GenerateJWT(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}
