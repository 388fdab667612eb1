package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"vendorgate/internal/credentials"
	"vendorgate/internal/metrics"
	"vendorgate/internal/models"
)

const (
	MsgInternalError  = "Internal server error"
	MsgUnexpectedBody = "Unexpected response format from API"

	snippetLength = 200
)

// Request is one inbound call to forward.
type Request struct {
	Method   string
	RawQuery string
	// Body is the decoded JSON object for write methods.
	Body map[string]any
}

// Result is the normalized answer for the caller.
type Result struct {
	Status int
	Body   models.Envelope
}

type upstreamResponse struct {
	StatusCode int
	Body       []byte
}

// Gateway forwards requests to the upstream platform with server-side
// credentials. Upstream calls are never retried.
type Gateway struct {
	creds   *credentials.Store
	logger  *zap.Logger
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(creds *credentials.Store, timeout time.Duration, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 10,
		Interval:    time.Minute,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(name, int(to))
		},
	}

	return &Gateway{
		creds:  creds,
		logger: log,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     10,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Forward runs res against the upstream: validate credentials, build auth,
// transform the payload, call, normalize.
func (g *Gateway) Forward(ctx context.Context, res Resource, req Request) Result {
	cred, err := g.creds.Get()
	if err != nil {
		g.logger.Error("Upstream credentials missing", zap.String("resource", res.Name))
		return Result{Status: http.StatusInternalServerError, Body: models.Fail(err.Error())}
	}

	method := req.Method
	if res.Method != "" {
		method = res.Method
	}

	var payload []byte
	if hasBody(method) {
		body := req.Body
		if body == nil {
			body = map[string]any{}
		}
		if res.Transform != nil {
			body = res.Transform(body)
		}
		payload, err = json.Marshal(body)
		if err != nil {
			g.logger.Error("Failed to encode upstream payload", zap.String("resource", res.Name), zap.Error(err))
			return Result{Status: http.StatusInternalServerError, Body: models.Fail(MsgInternalError)}
		}
	}

	target := cred.BaseURL + res.Path
	if !hasBody(method) && req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	resp, err := g.do(ctx, res.Name, method, target, cred.BasicAuth(), payload)
	if err != nil {
		return Result{Status: http.StatusInternalServerError, Body: models.Fail(MsgInternalError)}
	}

	return g.normalize(res, resp)
}

func (g *Gateway) normalize(res Resource, resp *upstreamResponse) Result {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := res.FailureMessage
		if res.SurfaceUpstreamMessage {
			if m := upstreamMessage(resp.Body); m != "" {
				message = m
			}
		}
		g.logger.Warn("Upstream returned error",
			zap.String("resource", res.Name),
			zap.Int("status", resp.StatusCode),
			zap.String("body", Snippet(resp.Body)),
		)
		return Result{Status: resp.StatusCode, Body: models.Fail(message)}
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return Result{Status: http.StatusOK, Body: models.OK(nil)}
	}

	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		g.logger.Error("Upstream returned non-JSON body",
			zap.String("resource", res.Name),
			zap.Error(err),
		)
		return Result{
			Status: http.StatusInternalServerError,
			Body: models.Envelope{
				Success: false,
				Message: MsgUnexpectedBody,
				Raw:     Snippet(resp.Body),
			},
		}
	}

	return Result{Status: http.StatusOK, Body: models.OK(data)}
}

// do executes one call through the circuit breaker. Only transport failures
// count against the breaker; any HTTP status is a successful exchange.
func (g *Gateway) do(ctx context.Context, resource, method, target, authorization string, payload []byte) (*upstreamResponse, error) {
	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream request: %w", err)
		}
		req.Header.Set("Authorization", authorization)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return &upstreamResponse{StatusCode: resp.StatusCode, Body: data}, nil
	})

	if err != nil {
		metrics.ObserveUpstream(resource, "transport_error", time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("Upstream circuit open", zap.String("resource", resource))
		} else {
			g.logger.Error("Upstream request failed",
				zap.String("resource", resource),
				zap.String("method", method),
				zap.Error(err),
			)
		}
		return nil, err
	}

	resp := result.(*upstreamResponse)
	outcome := "ok"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "upstream_error"
	}
	metrics.ObserveUpstream(resource, outcome, time.Since(start))

	g.logger.Debug("Upstream request completed",
		zap.String("resource", resource),
		zap.String("method", method),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("response_size", len(resp.Body)),
	)
	return resp, nil
}

// BreakerState reports the upstream circuit breaker state.
func (g *Gateway) BreakerState() string {
	return g.breaker.State().String()
}

// Configured reports credentials.ErrNotConfigured when the upstream
// credentials are missing.
func (g *Gateway) Configured() error {
	_, err := g.creds.Get()
	return err
}

// BaseURL is the configured upstream root.
func (g *Gateway) BaseURL() string {
	return g.creds.BaseURL()
}

func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return false
	}
	return true
}

// upstreamMessage extracts a "message" string from a JSON error body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// Snippet returns at most the first 200 characters of body.
func Snippet(body []byte) string {
	s := string(body)
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetLength])
}
