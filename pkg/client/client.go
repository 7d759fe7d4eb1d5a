package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 8 << 20

// Client talks to a facedex service. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the service at baseURL (e.g. http://localhost:5000).
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("facedex: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		obs:     obs,
	}, nil
}

type extractResponse struct {
	Success   bool      `json:"success"`
	Embedding []float64 `json:"embedding"`
	Error     *string   `json:"error"`
}

type searchResponse struct {
	Success bool    `json:"success"`
	Matches []Match `json:"matches"`
}

type errorBody struct {
	Error string `json:"error"`
}

// ExtractFile uploads image bytes as a multipart file.
func (c *Client) ExtractFile(ctx context.Context, filename string, data []byte) ([]float64, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("facedex: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("facedex: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("facedex: build upload: %w", err)
	}
	return c.extract(ctx, "extract_file", mw.FormDataContentType(), buf.Bytes())
}

// ExtractBase64 sends image bytes base64-encoded in a JSON body.
func (c *Client) ExtractBase64(ctx context.Context, data []byte) ([]float64, error) {
	body, err := json.Marshal(map[string]string{"imageBase64": base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return nil, fmt.Errorf("facedex: encode request: %w", err)
	}
	return c.extract(ctx, "extract_base64", "application/json", body)
}

// ExtractURL asks the service to download the image itself.
func (c *Client) ExtractURL(ctx context.Context, imageURL string) ([]float64, error) {
	body, err := json.Marshal(map[string]string{"imageUrl": imageURL})
	if err != nil {
		return nil, fmt.Errorf("facedex: encode request: %w", err)
	}
	return c.extract(ctx, "extract_url", "application/json", body)
}

func (c *Client) extract(ctx context.Context, op, contentType string, body []byte) (emb []float64, err error) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() { c.obs.observe(op, requestID, start, err) }()

	var resp extractResponse
	if err = c.do(ctx, requestID, http.MethodPost, "/api/face/extract-embedding", contentType, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := "unknown failure"
		if resp.Error != nil {
			msg = *resp.Error
		}
		return nil, &ExtractionError{Message: msg}
	}
	return resp.Embedding, nil
}

// ExtractBatch extracts many images in one call. Per-item failures are reported in
// the results; an error is returned only when the whole request fails.
func (c *Client) ExtractBatch(ctx context.Context, items []BatchItem) (report BatchReport, err error) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() { c.obs.observe("extract_batch", requestID, start, err) }()

	if items == nil {
		items = []BatchItem{}
	}
	body, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		return BatchReport{}, fmt.Errorf("facedex: encode request: %w", err)
	}

	if err = c.do(ctx, requestID, http.MethodPost, "/api/face/extract-embeddings", "application/json", body, &report); err != nil {
		return BatchReport{}, err
	}
	return report, nil
}

// SearchSimilar ranks req.Candidates by similarity to req.Query.
func (c *Client) SearchSimilar(ctx context.Context, req SearchRequest) (matches []Match, err error) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() { c.obs.observe("search", requestID, start, err) }()

	payload := map[string]any{
		"queryEmbedding": req.Query,
		"allEmbeddings":  req.Candidates,
	}
	if req.Candidates == nil {
		payload["allEmbeddings"] = []Candidate{}
	}
	if req.TopN > 0 {
		payload["topN"] = req.TopN
	}
	if req.Threshold != nil {
		payload["threshold"] = *req.Threshold
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("facedex: encode request: %w", err)
	}

	var resp searchResponse
	if err = c.do(ctx, requestID, http.MethodPost, "/api/face/search-similar", "application/json", body, &resp); err != nil {
		return nil, err
	}
	if resp.Matches == nil {
		resp.Matches = []Match{}
	}
	return resp.Matches, nil
}

// Health fetches the service health. A degraded service (503) is not an error.
func (c *Client) Health(ctx context.Context) (status HealthStatus, err error) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() { c.obs.observe("health", requestID, start, err) }()

	if err = c.do(ctx, requestID, http.MethodGet, "/health", "", nil, &status, http.StatusServiceUnavailable); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}

// do sends one request and decodes a 200 answer (or one of accept) into out.
func (c *Client) do(
	ctx context.Context, requestID, method, path, contentType string, body []byte, out any, accept ...int,
) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("facedex: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("facedex: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("facedex: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && !slices.Contains(accept, resp.StatusCode) {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error, RequestID: requestID}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("facedex: decode response: %w", err)
	}
	return nil
}

// IsAPIError reports whether err is an APIError with the given status code.
func IsAPIError(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == status
}
