package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// Claims identify the storefront or back office calling the transaction API.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// RequireAuth accepts HS256 bearer tokens signed with jwtSecret.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header", "auth_required")
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeAuthError(w, "invalid authorization scheme", "auth_invalid_scheme")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeAuthError(w, "invalid token", "auth_invalid")
				return
			}

			clientID := claims.ClientID
			if clientID == "" {
				clientID = claims.Subject
			}
			if clientID == "" {
				writeAuthError(w, "token has no client", "auth_invalid")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIDKey, clientID)))
		})
	}
}

func GetClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientIDKey).(string)
	return id, ok
}

func writeAuthError(w http.ResponseWriter, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
