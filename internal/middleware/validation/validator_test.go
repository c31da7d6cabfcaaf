package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Get("/chat", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/documents", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestMiddleware_AllowsNormalQuery(t *testing.T) {
	app := testApp(Config{})

	resp, err := app.Test(httptest.NewRequest("GET", "/chat?text=h%E1%BB%8Dc+ph%C3%AD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddleware_RejectsOverlongQuery(t *testing.T) {
	app := testApp(Config{MaxQueryLength: 10})

	resp, err := app.Test(httptest.NewRequest("GET", "/chat?text="+strings.Repeat("a", 11), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMiddleware_RejectsWrongContentType(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/documents", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "text/xml")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestMiddleware_AllowsJSONPost(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
