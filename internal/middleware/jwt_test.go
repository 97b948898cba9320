package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/middleware"
)

const testSecret = "test-secret"

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})
	return app
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func performAuth(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedValidToken(t *testing.T) {
	app := protectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": float64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resp := performAuth(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedStringSubject(t *testing.T) {
	app := protectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "42"})

	resp := performAuth(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedMissingHeader(t *testing.T) {
	app := protectedApp()

	resp := performAuth(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedWrongSecret(t *testing.T) {
	app := protectedApp()
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": float64(42)})

	resp := performAuth(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedExpiredToken(t *testing.T) {
	app := protectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": float64(42),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	resp := performAuth(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedTokenWithoutSubject(t *testing.T) {
	app := protectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{"scope": "none"})

	resp := performAuth(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedMalformedHeader(t *testing.T) {
	app := protectedApp()

	resp := performAuth(t, app, "Token abcdef")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
