package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

const (
	// maxRetries is the maximum number of retry attempts before giving up.
	maxRetries = 3

	// requestTimeout is the HTTP request timeout for each send attempt.
	requestTimeout = 10 * time.Second
)

// baseRetryDelay is the base delay for exponential backoff between retries.
var baseRetryDelay = 2 * time.Second

// HTTPSink POSTs gzip-compressed JSON batches to the ingest endpoint.
type HTTPSink struct {
	client *http.Client
	url    string
	token  string
	logger *zap.Logger
}

// NewHTTPSink creates a sink for the API at serverURL.
func NewHTTPSink(serverURL, token string, logger *zap.Logger) *HTTPSink {
	return &HTTPSink{
		client: &http.Client{Timeout: requestTimeout},
		url:    fmt.Sprintf("%s/api/ingest", serverURL),
		token:  token,
		logger: logger,
	}
}

// Send delivers the batch, retrying with exponential backoff. A 429 response
// stops the retries immediately.
func (s *HTTPSink) Send(ctx context.Context, batch models.Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("compress batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalize gzip compression: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * baseRetryDelay
			s.logger.Warn("Retrying send",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = s.doSend(ctx, compressed.Bytes())
		if lastErr == nil {
			return nil
		}

		if isRateLimited(lastErr) {
			return lastErr
		}

		s.logger.Warn("Send failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (s *HTTPSink) Close() error { return nil }

// doSend performs a single HTTP POST to the ingest endpoint.
func (s *HTTPSink) doSend(ctx context.Context, compressedData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(compressedData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}

	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// rateLimitError indicates the server returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}

// isRateLimited checks whether an error is a rate limit response.
func isRateLimited(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}
