package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vendorgate/internal/auth"
	"vendorgate/internal/gateway/proxy"
	"vendorgate/internal/models"
)

const MsgUnauthorized = "Unauthorized"

type ProxyHandler struct {
	proxy  *proxy.Proxy
	logger *zap.Logger
}

func NewProxyHandler(p *proxy.Proxy, log *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		proxy:  p,
		logger: log,
	}
}

// Forward relays the wildcard path to the proxy target without credentials.
func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	return relay(c, h.proxy, h.logger, "")
}

type SessionProxyHandler struct {
	proxy      *proxy.Proxy
	validator  *auth.SessionValidator
	cookieName string
	logger     *zap.Logger
}

func NewSessionProxyHandler(p *proxy.Proxy, validator *auth.SessionValidator, cookieName string, log *zap.Logger) *SessionProxyHandler {
	return &SessionProxyHandler{
		proxy:      p,
		validator:  validator,
		cookieName: cookieName,
		logger:     log,
	}
}

// Forward relays the wildcard path with the bearer token carried by the
// session cookie.
func (h *SessionProxyHandler) Forward(c *fiber.Ctx) error {
	cookie := c.Cookies(h.cookieName)
	if cookie == "" {
		return unauthorized(c)
	}

	bearer, err := h.validator.BearerToken(cookie)
	if err != nil {
		h.logger.Debug("Session rejected", zap.String("path", c.Path()), zap.Error(err))
		return unauthorized(c)
	}

	return relay(c, h.proxy, h.logger, "Bearer "+bearer)
}

func relay(c *fiber.Ctx, p *proxy.Proxy, log *zap.Logger, authorization string) error {
	req := proxy.Request{
		Method:        c.Method(),
		Path:          c.Params("*"),
		RawQuery:      string(c.Request().URI().QueryString()),
		Authorization: authorization,
	}

	if c.Method() == fiber.MethodPost {
		body, err := proxy.DecodeBody(c.Get(fiber.HeaderContentType), c.Body())
		if err != nil {
			log.Warn("Proxy body rejected", zap.String("path", req.Path), zap.Error(err))
			return proxyFailed(c)
		}
		req.Body = body
	}

	resp, err := p.Do(c.UserContext(), req)
	if err != nil {
		return proxyFailed(c)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).Send(resp.Body)
}

func proxyFailed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(models.StatusEnvelope{
		Status:  false,
		Message: proxy.MsgProxyFailed,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.StatusEnvelope{
		Status:  false,
		Message: MsgUnauthorized,
	})
}
