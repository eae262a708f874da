package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lenswatch/nvr-core/internal/logging"
)

// HTTPConfig configures an HTTPDetector.
type HTTPConfig struct {
	Endpoint       string
	Timeout        time.Duration
	RateLimitHz    float64 // requests per second sent to the backend
	RateLimitBurst int
	Breaker        CircuitBreakerConfig
}

// DefaultHTTPConfig fills in conservative, documented defaults.
func DefaultHTTPConfig(endpoint string) HTTPConfig {
	return HTTPConfig{
		Endpoint:       endpoint,
		Timeout:        2 * time.Second,
		RateLimitHz:    10,
		RateLimitBurst: 5,
		Breaker:        DefaultCircuitBreakerConfig(),
	}
}

// HTTPDetector invokes a remote inference API over HTTP, one POST per
// frame. Outbound calls are rate-limited (a slow backend must not starve
// the frame-sampling loop) and circuit-breaker wrapped (a failing
// backend is rejected quickly instead of piling up timeouts).
type HTTPDetector struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitBreaker
	logger  *logging.Logger
}

// NewHTTPDetector builds an HTTPDetector talking to cfg.Endpoint.
func NewHTTPDetector(cfg HTTPConfig) *HTTPDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.RateLimitHz <= 0 {
		cfg.RateLimitHz = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	logger := logging.GetLogger("detector")
	return &HTTPDetector{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitHz), cfg.RateLimitBurst),
		breaker: newCircuitBreaker("detector-http", cfg.Breaker, logger),
		logger:  logger,
	}
}

type inferRequest struct {
	StreamName string `json:"stream_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
}

type inferResponse struct {
	Boxes []Box `json:"boxes"`
}

// Infer waits for rate-limiter admission, then performs the HTTP call
// under circuit-breaker protection. The frame's raw bytes are sent as
// the request body; the JSON sidecar fields go in headers so the
// backend can stream the body directly without buffering it twice.
func (d *HTTPDetector) Infer(ctx context.Context, frame Frame) ([]Box, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %q: %w", frame.StreamName, err)
	}

	var boxes []Box
	err := d.breaker.call(func() error {
		b, err := d.doRequest(ctx, frame)
		if err != nil {
			return err
		}
		boxes = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boxes, nil
}

func (d *HTTPDetector) doRequest(ctx context.Context, frame Frame) ([]Box, error) {
	meta := inferRequest{StreamName: frame.StreamName, Width: frame.Width, Height: frame.Height, Format: frame.Format}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal frame metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("build infer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Frame-Meta", string(metaJSON))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("infer request for %q: %w", frame.StreamName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("infer request for %q: status %d: %s", frame.StreamName, resp.StatusCode, body)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode infer response for %q: %w", frame.StreamName, err)
	}
	return out.Boxes, nil
}
