package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"vendorgate/internal/credentials"
	"vendorgate/internal/models"
)

const (
	MsgCredentialsRequired = "Username and password required"
	MsgInvalidCredentials  = "Invalid username or password. If two-factor authentication is enabled, use an application password."
	MsgUnverified          = "Unable to verify credentials"
)

// LoginProbes are tried in order with the caller's credentials.
var LoginProbes = []string{"/users/me", "/orders/summary", "/stores"}

// Login checks caller-supplied platform credentials by probing endpoints
// until one accepts them.
func (g *Gateway) Login(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return Result{Status: http.StatusBadRequest, Body: models.Fail(MsgCredentialsRequired)}
	}

	auth := credentials.BasicAuth(username, password)
	denied := false
	lastStatus := 0

	for _, endpoint := range LoginProbes {
		resp, err := g.do(ctx, "login", http.MethodGet, g.creds.BaseURL()+endpoint, auth, nil)
		if err != nil {
			return Result{Status: http.StatusInternalServerError, Body: models.Fail(MsgInternalError)}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			var data any
			if err := json.Unmarshal(resp.Body, &data); err != nil {
				g.logger.Debug("Login probe returned non-JSON body",
					zap.String("endpoint", endpoint),
					zap.String("body", Snippet(resp.Body)),
					zap.Error(err),
				)
			}
			g.logger.Info("Platform login verified",
				zap.String("username", username),
				zap.String("endpoint", endpoint),
			)
			return Result{
				Status: http.StatusOK,
				Body:   models.Envelope{Success: true, Data: data, Endpoint: endpoint},
			}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			denied = true
		default:
			lastStatus = resp.StatusCode
		}
	}

	if denied {
		g.logger.Info("Platform login rejected", zap.String("username", username))
		return Result{Status: http.StatusUnauthorized, Body: models.Fail(MsgInvalidCredentials)}
	}
	return Result{Status: lastStatus, Body: models.Fail(MsgUnverified)}
}
