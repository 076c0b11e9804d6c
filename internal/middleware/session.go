package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hoja/pkg/logger"
)

const (
	ProfileCookie = "hoja_profile"
	ProfileHeader = "X-Profile-Token"
)

type profileClaims struct {
	ProfileID string `json:"profile_id"`
	jwt.RegisteredClaims
}

// ProfileMiddleware identifies the browser profile behind a request with a signed token. A
// request without a valid token starts a new profile and receives a fresh token.
type ProfileMiddleware struct {
	secret []byte
	ttl    time.Duration
	secure bool
	logger logger.Logger
}

func NewProfileMiddleware(secret string, ttl time.Duration, secureCookie bool, log logger.Logger) *ProfileMiddleware {
	return &ProfileMiddleware{secret: []byte(secret), ttl: ttl, secure: secureCookie, logger: log}
}

// IssueToken signs a token for profileID.
func (m *ProfileMiddleware) IssueToken(profileID string) (string, error) {
	now := time.Now()
	claims := profileClaims{
		ProfileID: profileID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken returns the profile id carried by a valid token.
func (m *ProfileMiddleware) ParseToken(tokenString string) (string, error) {
	claims := &profileClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if _, err := uuid.Parse(claims.ProfileID); err != nil {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.ProfileID, nil
}

func tokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(ProfileHeader)); t != "" {
		return t
	}
	if c, err := r.Cookie(ProfileCookie); err == nil {
		return c.Value
	}
	return ""
}

func (m *ProfileMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := ""
		if t := tokenFromRequest(r); t != "" {
			if id, err := m.ParseToken(t); err == nil {
				profileID = id
			}
		}

		if profileID == "" {
			profileID = uuid.NewString()
			token, err := m.IssueToken(profileID)
			if err != nil {
				m.logger.Error("Failed to issue profile token", map[string]interface{}{"error": err.Error()})
				jsonError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.ttl.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(ProfileHeader, token)
		}

		ctx := context.WithValue(r.Context(), ctxProfileIDKey, profileID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProfileIDFromContext returns the profile id set by Identify.
func ProfileIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxProfileIDKey).(string)
	return id, ok && id != ""
}

// WithProfileID is used by tests and internal callers that bypass Identify.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, ctxProfileIDKey, profileID)
}
