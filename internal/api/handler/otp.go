package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"vendorgate/internal/metrics"
	"vendorgate/internal/models"
	"vendorgate/internal/otp"
)

const (
	MsgOTPSent     = "OTP sent successfully"
	MsgOTPVerified = "OTP verified successfully"
)

type OTPHandler struct {
	service    *otp.Service
	exposeCode bool
	logger     *zap.Logger
}

// NewOTPHandler serves issue and verify. With exposeCode the issued code is
// echoed in the response body.
func NewOTPHandler(service *otp.Service, exposeCode bool, log *zap.Logger) *OTPHandler {
	return &OTPHandler{
		service:    service,
		exposeCode: exposeCode,
		logger:     log,
	}
}

// Send handles POST /send-otp.
func (h *OTPHandler) Send(c *fiber.Ctx) error {
	var req models.OTPRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			metrics.RecordOTP("send_rejected")
			return c.Status(fiber.StatusBadRequest).JSON(models.StatusEnvelope{
				Status:  false,
				Message: otp.ErrEmailRequired.Message,
			})
		}
	}

	result, err := h.service.Send(c.UserContext(), req.Email)
	if err != nil {
		metrics.RecordOTP("send_rejected")
		return h.fail(c, err)
	}

	metrics.RecordOTP("sent")
	resp := models.StatusEnvelope{Status: true, Message: MsgOTPSent}
	if h.exposeCode {
		resp.OTP = result.Code
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Verify handles GET /send-otp?email=&otp=.
func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	err := h.service.Verify(c.UserContext(), c.Query("email"), c.Query("otp"))
	if err != nil {
		metrics.RecordOTP("verify_failed")
		return h.fail(c, err)
	}

	metrics.RecordOTP("verified")
	return c.Status(fiber.StatusOK).JSON(models.StatusEnvelope{
		Status:  true,
		Message: MsgOTPVerified,
	})
}

func (h *OTPHandler) fail(c *fiber.Ctx, err error) error {
	var oe *otp.Error
	if errors.As(err, &oe) {
		return c.Status(oe.Status).JSON(models.StatusEnvelope{Status: false, Message: oe.Message})
	}

	h.logger.Error("OTP operation failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(models.StatusEnvelope{
		Status:  false,
		Message: "Internal server error",
	})
}
