package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minicloud/service/internal/catalog"
	"github.com/minicloud/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// userKey is the context key the authenticated user is stored under.
const userKey contextKey = "currentUser"

// CurrentUser returns the authenticated user injected by RequireAuth.
func CurrentUser(r *http.Request) (catalog.User, bool) {
	u, ok := r.Context().Value(userKey).(catalog.User)
	return u, ok
}

// RequireAuth returns middleware that resolves a Bearer token to a catalog
// user and injects it into the request context. The token is either an
// account API key or a JWT issued by the login endpoint.
func RequireAuth(store *catalog.Store, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}
			token := parts[1]

			u, ok := store.UserByAPIKey(token)
			if !ok {
				u, ok = userFromJWT(store, jwtSecret, token)
			}
			if !ok {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userFromJWT validates an HS256 JWT and resolves its subject to a user.
func userFromJWT(store *catalog.Store, jwtSecret, raw string) (catalog.User, bool) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return catalog.User{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return catalog.User{}, false
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.Atoi(sub)
	if err != nil {
		return catalog.User{}, false
	}
	return store.UserByID(id)
}
