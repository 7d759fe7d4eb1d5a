// Package modelserver implements domain.FaceModel on top of a face model sidecar
// speaking a small multipart/JSON protocol (detect, landmarks, descriptor).
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/version"
)

// Stage names, also used as metric labels.
const (
	StageDetect     = "detect"
	StageLandmarks  = "landmarks"
	StageDescriptor = "descriptor"
)

const maxResponseBytes = 1 << 20

// Config holds the sidecar client settings.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Client is a face model backend reached over HTTP. Safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ domain.FaceModel = (*Client)(nil)

// New creates a sidecar client.
func New(cfg *Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "face-model",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Callers going away is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

type detectResponse struct {
	Faces []struct {
		Left   int     `json:"left"`
		Top    int     `json:"top"`
		Right  int     `json:"right"`
		Bottom int     `json:"bottom"`
		Score  float64 `json:"score"`
	} `json:"faces"`
}

type regionPayload struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

type landmarksResponse struct {
	Points [][2]int `json:"points"`
}

type descriptorResponse struct {
	Descriptor []float64 `json:"descriptor"`
}

// Detect implements domain.FaceDetector.
func (c *Client) Detect(ctx context.Context, gray *image.Gray) ([]domain.FaceRegion, error) {
	var resp detectResponse
	if err := c.call(ctx, StageDetect, "/v1/detect", gray, nil, &resp); err != nil {
		return nil, err
	}

	regions := make([]domain.FaceRegion, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		regions = append(regions, domain.FaceRegion{
			Rect:  image.Rect(f.Left, f.Top, f.Right, f.Bottom),
			Score: f.Score,
		})
	}
	return regions, nil
}

// Landmarks implements domain.LandmarkPredictor.
func (c *Client) Landmarks(ctx context.Context, img image.Image, region domain.FaceRegion) (domain.Landmarks, error) {
	r := region.Rect.Canon()
	fields := map[string]any{
		"region": regionPayload{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y},
	}

	var resp landmarksResponse
	if err := c.call(ctx, StageLandmarks, "/v1/landmarks", img, fields, &resp); err != nil {
		return nil, err
	}
	if len(resp.Points) == 0 {
		return nil, fmt.Errorf("%w: %s: empty landmark set", domain.ErrModelBackend, StageLandmarks)
	}

	lm := make(domain.Landmarks, len(resp.Points))
	for i, p := range resp.Points {
		lm[i] = image.Pt(p[0], p[1])
	}
	return lm, nil
}

// Descriptor implements domain.DescriptorComputer.
func (c *Client) Descriptor(ctx context.Context, img image.Image, landmarks domain.Landmarks) (domain.Embedding, error) {
	points := make([][2]int, len(landmarks))
	for i, p := range landmarks {
		points[i] = [2]int{p.X, p.Y}
	}

	var resp descriptorResponse
	if err := c.call(ctx, StageDescriptor, "/v1/descriptor", img, map[string]any{"landmarks": points}, &resp); err != nil {
		return nil, err
	}
	return domain.Embedding(resp.Descriptor), nil
}

// HealthCheck pings the sidecar health endpoint. It bypasses the circuit breaker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health status %d", domain.ErrModelBackend, resp.StatusCode)
	}
	return nil
}

// call posts img as PNG plus JSON-encoded fields to path and decodes the JSON answer into out.
func (c *Client) call(ctx context.Context, stage, path string, img image.Image, fields map[string]any, out any) error {
	body, contentType, err := encodeForm(img, fields)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	start := time.Now()
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, path, contentType, body)
	})
	duration := time.Since(start)

	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
			err = fmt.Errorf("%w: %w", domain.ErrModelBackend, err)
		}
		metrics.ModelRequestsTotal.WithLabelValues(stage, status).Inc()
		return fmt.Errorf("%s: %w", stage, err)
	}

	metrics.ModelRequestsTotal.WithLabelValues(stage, "ok").Inc()
	metrics.ModelRequestDuration.WithLabelValues(stage).Observe(duration.Seconds())

	data, _ := raw.([]byte)
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", stage, domain.ErrModelBackend, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if id := chiMiddleware.GetReqID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if detail := extractDetail(data); detail != "" {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrModelBackend, resp.StatusCode, detail)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrModelBackend, resp.StatusCode)
	}
	return data, nil
}

func encodeForm(img image.Image, fields map[string]any) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, v := range fields {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", name, err)
		}
		if err := writer.WriteField(name, string(payload)); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="image.png"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if r, ok := img.(interface{ RGBA() *image.RGBA }); ok {
		img = r.RGBA()
	}
	if err := png.Encode(part, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// extractDetail pulls a human-readable message out of a JSON error body ("error" or "detail").
func extractDetail(body []byte) string {
	var parsed struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
