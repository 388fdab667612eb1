package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vendorgate/internal/metrics"
	"vendorgate/internal/ratelimit"
)

// UnknownClient is the rate limit key for requests without X-Forwarded-For.
const UnknownClient = "unknown"

const requestIDKey = "requestid"

// Gatekeeper rate limits every request outside the exclusion list. Denied
// requests get 429 with Retry-After and never reach a handler. Admitted
// requests get a request id and default security headers.
func Gatekeeper(limiter *ratelimit.Limiter, exclude []string, log *zap.Logger) fiber.Handler {
	excluded := newPathSet(exclude)
	retryAfter := strconv.Itoa(int(limiter.Window().Seconds()))

	return func(c *fiber.Ctx) error {
		if excluded.match(c.Path()) {
			return c.Next()
		}

		key := ClientKey(c.Get(fiber.HeaderXForwardedFor))
		if !limiter.CheckRateLimit(c.UserContext(), key) {
			metrics.RecordRateLimited()
			log.Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.Path()),
			)
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return RateLimitReachedFiber(c)
		}

		id := uuid.NewString()
		c.Locals(requestIDKey, id)
		c.Set(fiber.HeaderXRequestID, id)

		err := c.Next()

		if len(c.Response().Header.Peek(fiber.HeaderXFrameOptions)) == 0 {
			c.Set(fiber.HeaderXFrameOptions, "SAMEORIGIN")
		}
		if len(c.Response().Header.Peek(fiber.HeaderXContentTypeOptions)) == 0 {
			c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		}
		return err
	}
}

// ClientKey returns the first hop of an X-Forwarded-For value. The result
// never aliases forwardedFor, which may point into a reused fasthttp buffer.
func ClientKey(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	if first = strings.TrimSpace(first); first != "" {
		return utils.CopyString(first)
	}
	return UnknownClient
}

// RequestID returns the id assigned by Gatekeeper, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// pathSet matches exact paths and "/prefix/*" patterns.
type pathSet struct {
	exact    map[string]bool
	prefixes []string
}

func newPathSet(paths []string) pathSet {
	s := pathSet{exact: make(map[string]bool, len(paths))}
	for _, p := range paths {
		if strings.HasSuffix(p, "/*") {
			s.prefixes = append(s.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		s.exact[p] = true
	}
	return s
}

func (s pathSet) match(path string) bool {
	if s.exact[path] {
		return true
	}
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
