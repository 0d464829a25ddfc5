package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/auth"
	"mediavault/internal/config"
	"mediavault/internal/model"
)

func testManager() *auth.Manager {
	return auth.NewManager(config.AuthConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func TestRequireAuth(t *testing.T) {
	m := testManager()
	pair, err := m.Issue(auth.Identity{ID: 3, Email: "a@x.io", Role: model.RoleUser})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/me", RequireAuth(m, "accessToken"), func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"id": id.ID})
	})

	tests := []struct {
		name   string
		cookie string
		header string
		want   int
	}{
		{name: "cookie", cookie: pair.Access, want: fiber.StatusOK},
		{name: "bearer header", header: "Bearer " + pair.Access, want: fiber.StatusOK},
		{name: "missing", want: fiber.StatusUnauthorized},
		{name: "refresh token rejected", cookie: pair.Refresh, want: fiber.StatusUnauthorized},
		{name: "garbage", cookie: "abc", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/me", nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", "accessToken="+tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequirePage(t *testing.T) {
	m := testManager()
	pair, err := m.Issue(auth.Identity{ID: 3})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/videos/:name", RequirePage(m, "accessToken", "/pages/login"), func(c *fiber.Ctx) error {
		return c.SendString("file")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/videos/a.mp4", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/pages/login?error=unauthorized", resp.Header.Get("Location"))

	req := httptest.NewRequest("GET", "/videos/a.mp4", nil)
	req.Header.Set("Cookie", "accessToken="+pair.Access)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	m := testManager()
	admin, err := m.Issue(auth.Identity{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)
	user, err := m.Issue(auth.Identity{ID: 2, Role: model.RoleUser})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/users", RequireAuth(m, "accessToken"), RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/unguarded", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for token, want := range map[string]int{admin.Access: fiber.StatusOK, user.Access: fiber.StatusForbidden} {
		req := httptest.NewRequest("GET", "/api/users", nil)
		req.Header.Set("Cookie", "accessToken="+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/unguarded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
