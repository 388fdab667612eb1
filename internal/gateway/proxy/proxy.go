package proxy

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

	"go.uber.org/zap"

	"vendorgate/internal/metrics"
)

const MsgProxyFailed = "Proxy request failed"

var ErrInvalidResponse = errors.New("upstream response is not valid JSON")

// Request is one call to relay.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	// Body is nil for GET.
	Body          Body
	Authorization string
}

// Response carries the upstream JSON untouched.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Proxy relays arbitrary paths to a single target host without any field
// remapping.
type Proxy struct {
	name   string
	target string
	client *http.Client
	logger *zap.Logger
}

func New(name, target string, timeout time.Duration, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Proxy{
		name:   name,
		target: strings.TrimRight(target, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: log,
	}
}

// Target returns the base URL requests are relayed to.
func (p *Proxy) Target() string {
	return p.target
}

// URL builds the outbound URL for path and query.
func (p *Proxy) URL(path, rawQuery string) string {
	u := p.target + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

func (p *Proxy) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.do(ctx, req)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "transport_error"
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		outcome = "upstream_error"
	}
	metrics.ObserveUpstream(p.name, outcome, time.Since(start))

	if err != nil {
		p.logger.Error("Proxy request failed",
			zap.String("proxy", p.name),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (p *Proxy) do(ctx context.Context, req Request) (*Response, error) {
	var (
		body        io.Reader
		contentType = ContentTypeJSON
		rawQuery    string
	)
	if req.Body != nil {
		data, err := req.Body.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = req.Body.ContentType()
	} else {
		rawQuery = req.RawQuery
	}

	outReq, err := http.NewRequestWithContext(ctx, req.Method, p.URL(req.Path, rawQuery), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	outReq.Header.Set("Content-Type", contentType)
	outReq.Header.Set("Accept", ContentTypeJSON)
	outReq.Header.Set("X-Proxy-Source", "vendorgate")
	if req.Authorization != "" {
		outReq.Header.Set("Authorization", req.Authorization)
	}

	resp, err := p.client.Do(outReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w (status %d)", ErrInvalidResponse, resp.StatusCode)
	}

	p.logger.Debug("Proxy request completed",
		zap.String("proxy", p.name),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status_code", resp.StatusCode),
	)

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
