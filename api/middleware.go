package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	customerIDKey = "customer_id"
	adminKey      = "admin"
	roleAdmin     = "admin"
)

// tokenClaims are the registered claims plus the caller's role.
type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate identifies the booking customer from an HS256 bearer token whose subject is
// the customer id. Requests without a token pass through as guests; a bad token is rejected.
// A token with the admin role also marks the request as administrative.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if secret == "" || header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "authorization header must be a bearer token", Reason: "unauthorized"})
			return
		}

		claims, id, err := parseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: err.Error(), Reason: "unauthorized"})
			return
		}
		c.Set(customerIDKey, id)
		c.Set(adminKey, claims.Role == roleAdmin)
		c.Next()
	}
}

func parseToken(raw, secret string) (*tokenClaims, int64, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("invalid token: %w", err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, fmt.Errorf("invalid token subject %q", claims.Subject)
	}
	return &claims, id, nil
}

// CustomerID returns the authenticated customer, if any.
func CustomerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(customerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}
