package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/version"
)

// Loader defaults.
const (
	DefaultDownloadTimeout = 10 * time.Second
	DefaultMaxBytes        = 20 << 20
)

// Loader resolves a Source to image bytes. Safe for concurrent use.
type Loader struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewLoader creates a Loader. A nil client selects a dedicated http.Client;
// non-positive limits select the defaults.
func NewLoader(client *http.Client, timeout time.Duration, maxBytes int64) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{client: client, timeout: timeout, maxBytes: maxBytes}
}

// Load returns the raw image bytes of src.
// Base64 failures wrap domain.ErrInvalidBase64, download failures wrap domain.ErrDownloadFailed.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	switch src.kind {
	case KindFile:
		return src.data, nil
	case KindBase64:
		return DecodeBase64(src.text)
	case KindURL:
		return l.download(ctx, src.URL())
	default:
		return nil, domain.ErrNoImageInput
	}
}

// DecodeBase64 decodes a base64 image payload. A "data:<mime>;base64," prefix
// and embedded whitespace are ignored; padded and unpadded input are accepted.
func DecodeBase64(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if _, rest, ok := strings.Cut(payload, ","); ok {
			payload = rest
		}
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidBase64)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if data, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrInvalidBase64, err)
}

func (l *Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", domain.ErrDownloadFailed, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	data, err := l.fetch(ctx, u.String())
	metrics.ImageDownloadDuration.WithLabelValues(downloadStatus(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

func downloadStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
