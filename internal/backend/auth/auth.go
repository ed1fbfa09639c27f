package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/snowlabel/internal/backend/session"
)

const (
	// CookieName carries the signed session token.
	CookieName = "session"
	// AccountIDContextKey is where the guard middleware stores the resolved
	// operator account id on the echo context.
	AccountIDContextKey = "operator_account_id"
	// APIKeyHeader carries the shared device secret on upload requests.
	APIKeyHeader = "X-API-KEY"
)

var ErrInvalidToken = errors.New("invalid session token")

// SignToken appends an HMAC-SHA256 signature so a forged cookie is rejected
// before the session store is consulted.
func SignToken(token, secret string) string {
	return token + "." + signature(token, secret)
}

// VerifyToken checks the signature of a signed cookie value and returns the
// embedded session token.
func VerifyToken(signed, secret string) (string, error) {
	token, sig, found := strings.Cut(signed, ".")
	if !found || token == "" {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(signature(token, secret))) {
		return "", ErrInvalidToken
	}
	return token, nil
}

func signature(token, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(token))
	return strings.TrimRight(base64.URLEncoding.EncodeToString(h.Sum(nil)), "=")
}

// ValidDeviceKey compares the presented device key against the configured one
// in constant time. Empty configured keys never match.
func ValidDeviceKey(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return hmac.Equal([]byte(presented), []byte(configured))
}

// SetSessionCookie writes the remember-me session cookie.
func SetSessionCookie(ctx echo.Context, token, secret string, ttl time.Duration) {
	ctx.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    SignToken(token, secret),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// SessionToken extracts and verifies the session token from the request
// cookie without consulting the session store.
func SessionToken(ctx echo.Context, secret string) (string, error) {
	cookie, err := ctx.Cookie(CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", ErrInvalidToken
	}
	return VerifyToken(cookie.Value, secret)
}

func resolveAccount(ctx echo.Context, sessions session.Store, secret string) (int64, error) {
	token, err := SessionToken(ctx, secret)
	if err != nil {
		return 0, err
	}
	return sessions.Resolve(ctx.Request().Context(), token)
}

// RequireOperatorPage guards browser page routes: without a valid session the
// request is redirected to the login page.
func RequireOperatorPage(sessions session.Store, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			accountID, err := resolveAccount(ctx, sessions, secret)
			if err != nil {
				return ctx.Redirect(http.StatusFound, "/login")
			}
			ctx.Set(AccountIDContextKey, accountID)
			return next(ctx)
		}
	}
}

// RequireOperatorAPI guards JSON API routes: without a valid session the
// caller gets a structured 401 instead of a redirect, so non-browser clients
// see a machine-readable error.
func RequireOperatorAPI(sessions session.Store, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			accountID, err := resolveAccount(ctx, sessions, secret)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, session.ErrNoSession) {
					slog.Error("session resolution failed", "error", err)
				}
				return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			ctx.Set(AccountIDContextKey, accountID)
			return next(ctx)
		}
	}
}
