package session

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Custom headers consumed by the bridge. Both must be present together;
// either alone is ignored.
const (
	HeaderSessionID   = "x-session-id"
	HeaderSessionName = "x-session-name"
)

// Bridge rewrites the two custom session headers into an equivalent
// session cookie before the Manager runs, so clients that cannot reliably
// send cookies still resolve to the correct session. It mutates only the
// in-flight request, never the response.
type Bridge struct {
	secret string
	logger Logger

	// OnRewrite is invoked with "signed" or "unsigned" for every
	// synthesized cookie. Wired to metrics by the application.
	OnRewrite func(mode string)
}

func NewBridge(secret string) *Bridge {
	return &Bridge{
		secret: secret,
		logger: defLogger{},
	}
}

func (b *Bridge) WithLogger(logger Logger) *Bridge {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Middleware performs the header-to-cookie normalization and passes
// control on unconditionally.
func (b *Bridge) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Get(HeaderSessionID)
		name := c.Get(HeaderSessionName)

		if sid != "" && name != "" {
			value, mode := b.cookieValue(sid)
			header := string(c.Request().Header.Peek(fiber.HeaderCookie))
			c.Request().Header.Set(fiber.HeaderCookie, spliceCookie(header, name, value))

			if b.OnRewrite != nil {
				b.OnRewrite(mode)
			}
		}

		return c.Next()
	}
}

// cookieValue produces the URL-encoded cookie value for a raw session id.
// When signing fails it falls back to the unsigned id so malformed header
// state never blocks the downstream engine; the weaker cookie is logged
// loudly because it will not verify.
func (b *Bridge) cookieValue(sid string) (string, string) {
	signed, err := Sign(sid, b.secret)
	if err != nil {
		b.logger.Warn("session bridge falling back to unsigned cookie sid=%s error=%v", sid, err)
		return url.QueryEscape(sid), "unsigned"
	}
	return url.QueryEscape(signed), "signed"
}

// spliceCookie replaces the cookie whose key before '=' exactly matches
// name, or appends it when absent.
func spliceCookie(header, name, value string) string {
	pair := name + "=" + value

	if header == "" {
		return pair
	}

	parts := strings.Split(header, ";")
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if strings.HasPrefix(trimmed, name+"=") {
			parts[i] = " " + pair
			if i == 0 {
				parts[i] = pair
			}
			return strings.Join(parts, ";")
		}
	}

	return header + "; " + pair
}
