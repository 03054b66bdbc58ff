package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RoleAdmin is required by the sync trigger, import upload and
// status-advance endpoints.
const RoleAdmin = "admin"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient role")
)

// Manager signs and validates the bearer tokens guarding admin routes.
type Manager struct {
	secret []byte
	logger *logrus.Logger
}

func NewManager(secret string, logger *logrus.Logger) *Manager {
	return &Manager{secret: []byte(secret), logger: logger}
}

// GenerateToken signs a token for the given subject and role.
func (m *Manager) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses the token and returns the subject and role.
func (m *Manager) ValidateToken(tokenString string) (subject, role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	subject, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if subject == "" {
		return "", "", ErrInvalidToken
	}
	return subject, role, nil
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (m *Manager) RequireAdmin() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondJSON(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			subject, role, err := m.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondJSON(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if role != RoleAdmin {
				m.logger.WithFields(logrus.Fields{
					"subject": subject,
					"role":    role,
					"path":    r.URL.Path,
				}).Warn("Non-admin caller rejected from admin route")
				respondJSON(w, http.StatusForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, code int, message string) {
	body, _ := json.Marshal(map[string]interface{}{"success": false, "message": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
