package session_test

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvine/identity/session"
)

const bridgeSecret = "keyboard cat"

func bridgeApp(t *testing.T, secret string, capture *string) (*fiber.App, *session.Bridge) {
	t.Helper()

	bridge := session.NewBridge(secret)
	app := fiber.New()
	app.Use(bridge.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		*capture = string(c.Request().Header.Peek(fiber.HeaderCookie))
		return c.SendStatus(fiber.StatusOK)
	})

	return app, bridge
}

func TestBridgeSynthesizesSignedCookie(t *testing.T) {
	var header string
	app, _ := bridgeApp(t, bridgeSecret, &header)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(session.HeaderSessionID, "raw-session-id")
	req.Header.Set(session.HeaderSessionName, "taskvine.sid")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Contains(t, header, "taskvine.sid=")

	value := header[len("taskvine.sid="):]
	decoded, err := url.QueryUnescape(value)
	require.NoError(t, err)

	sid, err := session.Unsign(decoded, bridgeSecret)
	require.NoError(t, err)
	assert.Equal(t, "raw-session-id", sid)
}

func TestBridgeIgnoresLoneHeader(t *testing.T) {
	for _, header := range []string{session.HeaderSessionID, session.HeaderSessionName} {
		var captured string
		app, _ := bridgeApp(t, bridgeSecret, &captured)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(header, "something")
		req.Header.Set("Cookie", "other=1")

		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "other=1", captured, "lone %s must not rewrite cookies", header)
	}
}

func TestBridgeReplacesExistingCookie(t *testing.T) {
	var header string
	app, _ := bridgeApp(t, bridgeSecret, &header)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(session.HeaderSessionID, "fresh-id")
	req.Header.Set(session.HeaderSessionName, "sid")
	req.Header.Set("Cookie", "sid=stale; theme=dark")

	_, err := app.Test(req)
	require.NoError(t, err)

	assert.NotContains(t, header, "sid=stale")
	assert.Contains(t, header, "theme=dark")

	// only one cookie named sid survives
	assert.Equal(t, 1, countCookie(header, "sid"))
}

func TestBridgeAppendsWhenAbsent(t *testing.T) {
	var header string
	app, _ := bridgeApp(t, bridgeSecret, &header)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(session.HeaderSessionID, "fresh-id")
	req.Header.Set(session.HeaderSessionName, "sid")
	req.Header.Set("Cookie", "sidetrack=1")

	_, err := app.Test(req)
	require.NoError(t, err)

	// prefix match is exact on the key before '=': sidetrack stays
	assert.Contains(t, header, "sidetrack=1")
	assert.Equal(t, 1, countCookie(header, "sid"))
}

func TestBridgeUnsignedFallback(t *testing.T) {
	var header string
	app, bridge := bridgeApp(t, "", &header)

	var mode string
	bridge.OnRewrite = func(m string) { mode = m }

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(session.HeaderSessionID, "fallback-id")
	req.Header.Set(session.HeaderSessionName, "sid")

	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "unsigned", mode)
	assert.Contains(t, header, "sid=fallback-id")
}

func countCookie(header, name string) int {
	count := 0
	for _, part := range splitCookies(header) {
		if len(part) > len(name) && part[:len(name)+1] == name+"=" {
			count++
		}
	}
	return count
}

func splitCookies(header string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(header); i++ {
		if i == len(header) || header[i] == ';' {
			part := header[start:i]
			for len(part) > 0 && part[0] == ' ' {
				part = part[1:]
			}
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
