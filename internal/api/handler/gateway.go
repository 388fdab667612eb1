package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vendorgate/internal/gateway"
	"vendorgate/internal/models"
)

const MsgInvalidJSON = "Invalid JSON body"

type GatewayHandler struct {
	gateway *gateway.Gateway
	logger  *zap.Logger
}

func NewGatewayHandler(gw *gateway.Gateway, log *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gw,
		logger:  log,
	}
}

// Resource returns a handler forwarding to res. Missing credentials answer
// 500 before the body is looked at. Write methods must carry a JSON object
// body; an empty body forwards as {}.
func (h *GatewayHandler) Resource(res gateway.Resource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.gateway.Configured(); err != nil {
			h.logger.Error("Upstream credentials missing", zap.String("resource", res.Name))
			return c.Status(fiber.StatusInternalServerError).JSON(models.Fail(err.Error()))
		}

		req := gateway.Request{
			Method:   c.Method(),
			RawQuery: string(c.Request().URI().QueryString()),
		}

		if c.Method() != fiber.MethodGet && len(c.Body()) > 0 {
			if err := json.Unmarshal(c.Body(), &req.Body); err != nil {
				h.logger.Debug("Rejected request body",
					zap.String("resource", res.Name),
					zap.Error(err),
				)
				return c.Status(fiber.StatusBadRequest).JSON(models.Fail(MsgInvalidJSON))
			}
		}

		result := h.gateway.Forward(c.UserContext(), res, req)
		return c.Status(result.Status).JSON(result.Body)
	}
}

// Login handles POST /login.
func (h *GatewayHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.Fail(gateway.MsgCredentialsRequired))
		}
	}

	result := h.gateway.Login(c.UserContext(), req.Username, req.Password)
	return c.Status(result.Status).JSON(result.Body)
}
