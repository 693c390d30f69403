package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/unmask-labs/certmint/internal/domain"
	"github.com/unmask-labs/certmint/internal/logger"
)

// Classifier produces deepfake probability scores for a stored asset.
// The model itself is an external inference service; this package only
// speaks its HTTP contract.
//
//go:generate mockgen -source=classifier.go -destination=../mocks/classifier.go -package=mocks -mock_names=Classifier=MockClassifier
type Classifier interface {
	// Classify returns {real, fake} fractional scores for the file at path
	Classify(ctx context.Context, path string) (domain.Classification, error)
}

// HTTPClassifier calls the inference service over HTTP
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier client for the given inference URL
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify posts the file to the inference service and decodes the scores.
// Rate limiting and network errors are retried with exponential backoff;
// any other non-200 response fails permanently.
func (c *HTTPClassifier) Classify(ctx context.Context, path string) (domain.Classification, error) {
	var result domain.Classification

	data, err := os.ReadFile(path) //nolint:gosec,G304
	if err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	body, contentType, err := buildMultipartBody(filepath.Base(path), data)
	if err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", c.url))
			}
		}()

		if resp.StatusCode == http.StatusTooManyRequests {
			logger.Warn("classifier rate limited, retrying with backoff", zap.String("url", c.url))
			return fmt.Errorf("rate limited (429), retrying")
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody)))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, backoff.WithMaxRetries(b, 3)); err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}

	if !result.Valid() {
		return result, fmt.Errorf("%w: scores out of range (real=%v fake=%v)", domain.ErrClassificationFailed, result.Real, result.Fake)
	}

	return result, nil
}

// buildMultipartBody builds the multipart form body once so retries can
// resend the same bytes.
func buildMultipartBody(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
