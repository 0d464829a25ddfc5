package middleware

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mediavault/internal/auth"
	"mediavault/internal/model"
)

// IdentityLocalKey is where the authenticated caller is stored in context locals.
const IdentityLocalKey = "identity"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Identity, error)
}

// GetIdentity returns the caller stored by RequireAuth or RequirePage.
func GetIdentity(c *fiber.Ctx) (*auth.Identity, bool) {
	id, ok := c.Locals(IdentityLocalKey).(*auth.Identity)
	return id, ok && id != nil
}

// accessToken reads the access cookie, falling back to a Bearer header for API clients.
func accessToken(c *fiber.Ctx, cookieName string) string {
	if tok := c.Cookies(cookieName); tok != "" {
		return tok
	}
	h := c.Get(fiber.HeaderAuthorization)
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

func authenticate(c *fiber.Ctx, v TokenVerifier, cookieName string) error {
	id, err := v.VerifyAccess(accessToken(c, cookieName))
	if err != nil {
		return err
	}
	c.Locals(IdentityLocalKey, id)
	return nil
}

// RequireAuth rejects requests without a valid access token with 401.
func RequireAuth(v TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, v, cookieName); err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}
		return c.Next()
	}
}

// RequirePage redirects unauthenticated browser requests to the login page.
func RequirePage(v TokenVerifier, cookieName, loginPath string) fiber.Handler {
	target := loginPath + "?error=" + url.QueryEscape("unauthorized")
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, v, cookieName); err != nil {
			return c.Redirect(target, fiber.StatusFound)
		}
		return c.Next()
	}
}

// RequireRole allows only callers holding role. It must run after RequireAuth.
func RequireRole(role model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
		}
		if id.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
		}
		return c.Next()
	}
}
