package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/stevenvinci05/portfolio/pkg/models"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// CookieName holds the signed session token.
const CookieName = "auth_token"

// LoginPath is where HTML requests without a session are sent.
const LoginPath = "/admin/login"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRevoked            = errors.New("session revoked")
	ErrInvalidToken       = errors.New("invalid token")
)

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

// SessionUser is the identity attached to authenticated requests.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// UserLookup finds accounts by username.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, bool, error)
}

// Manager issues, validates and revokes admin session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	users   UserLookup
	revoker Revoker
	now     func() time.Time
}

// NewManager creates a Manager. revoker may be nil, in which case logout only
// clears the cookie and tokens stay valid until they expire.
func NewManager(secret string, ttl time.Duration, users UserLookup, revoker Revoker) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		users:   users,
		revoker: revoker,
		now:     time.Now,
	}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecret creates a random signing secret for when none is configured.
func GenerateSecret() string {
	return randomToken(32)
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Login checks the credentials of an admin account and returns a signed token.
func (m *Manager) Login(ctx context.Context, username, password string) (string, *SessionUser, error) {
	u, ok, err := m.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !u.IsAdmin || !CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	user := &SessionUser{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
	token, err := m.GenerateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateJWT creates a signed session token for user.
func (m *Manager) GenerateJWT(user *SessionUser) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        randomToken(16),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses tokenString and rejects bad signatures, expired tokens and
// revoked sessions.
func (m *Manager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if m.revoker != nil && claims.ID != "" {
		revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevoked
		}
	}
	return claims, nil
}

// Logout revokes the token's id until the token would have expired.
func (m *Manager) Logout(ctx context.Context, tokenString string) error {
	if m.revoker == nil || tokenString == "" {
		return nil
	}
	claims, err := m.Validate(ctx, tokenString)
	if err != nil {
		if errors.Is(err, ErrRevoked) {
			return nil
		}
		return err
	}
	ttl := m.ttl
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	return m.revoker.Revoke(ctx, claims.ID, ttl)
}

// SetSessionCookie stores token in the session cookie.
func (m *Manager) SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// TokenFromRequest extracts the session token from the Authorization header
// or the session cookie.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAdmin only lets requests carrying a valid admin session through.
// Browsers are redirected to the login page; API clients get a 401.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := TokenFromRequest(r)
		if tokenString == "" {
			m.deny(w, r, "Authentication required")
			return
		}

		claims, err := m.Validate(r.Context(), tokenString)
		if err != nil || !claims.IsAdmin {
			hlog.FromRequest(r).Debug().Err(err).Msg("rejected admin session")
			ClearSessionCookie(w)
			m.deny(w, r, "Invalid authentication token")
			return
		}

		user := &SessionUser{ID: claims.UserID, Username: claims.Username, IsAdmin: claims.IsAdmin}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) deny(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		http.Error(w, msg, http.StatusUnauthorized)
		return
	}
	target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// GetUserFromContext extracts user from request context
func GetUserFromContext(r *http.Request) *SessionUser {
	if user, ok := r.Context().Value(UserContextKey).(*SessionUser); ok {
		return user
	}
	return nil
}
