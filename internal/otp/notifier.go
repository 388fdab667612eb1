package otp

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier records issued codes in the log with the digits masked.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(_ context.Context, email, code string) error {
	n.logger.Info("OTP delivery",
		zap.String("email", email),
		zap.String("otp", MaskCode(code)),
	)
	return nil
}

// MaskCode keeps the last two digits of code.
func MaskCode(code string) string {
	if len(code) <= 2 {
		return code
	}
	masked := make([]byte, len(code))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(code)-2:], code[len(code)-2:])
	return string(masked)
}
