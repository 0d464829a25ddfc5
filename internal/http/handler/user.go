package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mediavault/internal/auth"
	"mediavault/internal/config"
	"mediavault/internal/model"
	"mediavault/internal/service"
)

func publicUser(u *model.User) fiber.Map {
	return fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role}
}

func sessionCookie(cfg config.AuthConfig, name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

func setSessionCookies(c *fiber.Ctx, cfg config.AuthConfig, pair auth.TokenPair) {
	c.Cookie(sessionCookie(cfg, cfg.AccessCookieName, pair.Access, pair.AccessExpiresAt))
	c.Cookie(sessionCookie(cfg, cfg.RefreshCookieName, pair.Refresh, pair.RefreshExpiresAt))
}

func clearSessionCookies(c *fiber.Ctx, cfg config.AuthConfig) {
	expired := time.Unix(0, 0)
	c.Cookie(sessionCookie(cfg, cfg.AccessCookieName, "", expired))
	c.Cookie(sessionCookie(cfg, cfg.RefreshCookieName, "", expired))
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("INVALID_BODY", "Invalid request body")
	}
	return nil
}

// RegisterUser handles POST /api/users/register.
//
// @Summary Register an account
// @Tags users
// @Accept json
// @Produce json
// @Param body body service.RegisterInput true "Account"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/users/register [post]
func RegisterUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RegisterInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		u, err := svc.Register(c.UserContext(), in)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusCreated, "User registered successfully", fiber.Map{
			"user": fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email},
		})
	}
}

// LoginUser handles POST /api/users/login and sets the session cookies.
//
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param body body service.LoginInput true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorPayload
// @Router /api/users/login [post]
func LoginUser(svc service.UserService, cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.LoginInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		u, pair, err := svc.Login(c.UserContext(), in)
		if err != nil {
			return err
		}
		setSessionCookies(c, cfg, pair)
		return writeSuccess(c, fiber.StatusOK, "Login successful", fiber.Map{"user": publicUser(u)})
	}
}

// LogoutUser handles POST /api/users/logout.
//
// @Summary Log out
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/users/logout [post]
func LogoutUser(cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookies(c, cfg)
		return writeSuccess(c, fiber.StatusOK, "Logout successful", nil)
	}
}

// RefreshSession handles POST /api/users/refresh.
//
// @Summary Exchange the refresh cookie for a new token pair
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorPayload
// @Router /api/users/refresh [post]
func RefreshSession(svc service.UserService, cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.RefreshCookieName)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token required")
		}
		u, pair, err := svc.Refresh(c.UserContext(), token)
		if err != nil {
			return err
		}
		setSessionCookies(c, cfg, pair)
		return writeSuccess(c, fiber.StatusOK, "Token refreshed", fiber.Map{"user": publicUser(u)})
	}
}

// CurrentUser handles GET /api/users/me.
//
// @Summary Current user with profile
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorPayload
// @Router /api/users/me [get]
func CurrentUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := callerID(c)
		if err != nil {
			return err
		}
		u, err := svc.Me(c.UserContext(), id)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, "User retrieved successfully", fiber.Map{"user": u})
	}
}

// UpdateProfile handles PUT /api/users/me/profile.
//
// @Summary Replace the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Param body body service.ProfileInput true "Profile"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Router /api/users/me/profile [put]
func UpdateProfile(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := callerID(c)
		if err != nil {
			return err
		}
		var in service.ProfileInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		p, err := svc.UpdateProfile(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"profile": p})
	}
}

// ListUsers handles GET /api/users (ADMIN only).
//
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]any
// @Failure 403 {object} errorPayload
// @Router /api/users [get]
func ListUsers(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pageParams(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return err
		}
		return writeSuccess(c, fiber.StatusOK, "Users retrieved successfully", fiber.Map{
			"users": res.Items,
			"total": res.Total,
		})
	}
}
