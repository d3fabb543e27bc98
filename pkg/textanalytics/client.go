package textanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/internal"
	"github.com/getzep/reviewpulse/pkg/httputil"
	"github.com/getzep/reviewpulse/pkg/models"
)

const (
	SentimentPath         = "/text/analytics/v3.1/sentiment"
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	// DefaultMaxBatchSize is the documents-per-call limit observed for the sentiment endpoint.
	DefaultMaxBatchSize = 10
)

// ErrBatchTooLarge wraps ErrProtocol: the documents-per-call limit belongs to the service contract.
var ErrBatchTooLarge = fmt.Errorf("%w: batch exceeds the documents-per-call limit", ErrProtocol)

var log = internal.GetLogger()

var _ models.Annotator = &Client{}

// Client calls the sentiment endpoint of a text analytics service.
type Client struct {
	url          string
	apiKey       string
	maxBatchSize int
	httpClient   *http.Client
}

// NewClient returns a Client for the given endpoint. maxBatchSize caps the number of
// documents accepted per Annotate call.
func NewClient(endpoint, apiKey string, maxBatchSize int, httpClient *http.Client) *Client {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if httpClient == nil {
		httpClient = httputil.NewRetryableHTTPClient(0, httputil.DefaultTimeout)
	}
	return &Client{
		url:          strings.TrimRight(endpoint, "/") + SentimentPath,
		apiKey:       apiKey,
		maxBatchSize: maxBatchSize,
		httpClient:   httpClient,
	}
}

// NewClientFromConfig builds a Client from the analysis section of the config.
// It performs no I/O, so it is safe to call before the config has been validated.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(
		cfg.Analysis.Endpoint,
		cfg.Analysis.APIKey,
		cfg.Analysis.BatchSize,
		httputil.NewRetryableHTTPClient(cfg.Analysis.RetryMax, cfg.Analysis.Timeout),
	)
}

// Annotate performs a single POST for batch and returns one result per document the
// service annotated. Results are in service order; callers correlate them by ID.
func (c *Client) Annotate(
	ctx context.Context,
	batch []models.AnnotationRequest,
) ([]models.AnnotationResult, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if len(batch) > c.maxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), c.maxBatchSize)
	}

	payload, err := json.Marshal(models.SentimentRequest{Documents: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sentiment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sentiment request: %w", err)
	}
	req.Header.Set(SubscriptionKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteServiceError{OriginalError: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, OriginalError: err}
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   internal.TruncateBody(body, internal.MaxLoggedBodyBytes),
		}).Error("sentiment service call failed")
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, Body: body}
	}

	results, err := decodeResults(body, batch)
	if err != nil {
		log.WithField("body", internal.TruncateBody(body, internal.MaxLoggedBodyBytes)).
			Errorf("unexpected sentiment service response: %v", err)
		return nil, err
	}

	return results, nil
}

// decodeResults requires a documents array whose entries all name a document of batch,
// each at most once. Per-document errors are logged and skipped.
func decodeResults(
	body []byte,
	batch []models.AnnotationRequest,
) ([]models.AnnotationResult, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ProtocolError{Message: "body is not a JSON object", Body: body}
	}

	docs, ok := raw["documents"]
	if !ok || bytes.Equal(bytes.TrimSpace(docs), []byte("null")) {
		return nil, &ProtocolError{Message: "documents field is missing", Body: body}
	}

	var results []models.AnnotationResult
	if err := json.Unmarshal(docs, &results); err != nil {
		return nil, &ProtocolError{Message: "documents field is malformed", Body: body}
	}

	pending := make(map[string]bool, len(batch))
	for _, r := range batch {
		pending[r.ID] = true
	}
	for _, r := range results {
		if !pending[r.ID] {
			return nil, &ProtocolError{
				Message: fmt.Sprintf("result for unknown or repeated document id %q", r.ID),
				Body:    body,
			}
		}
		delete(pending, r.ID)
	}

	if docErrs, ok := raw["errors"]; ok {
		var annotationErrors []models.AnnotationError
		if err := json.Unmarshal(docErrs, &annotationErrors); err == nil {
			for _, e := range annotationErrors {
				log.WithFields(logrus.Fields{
					"document_id": e.ID,
					"error":       e.Error,
				}).Warn("sentiment service rejected document")
			}
		}
	}

	return results, nil
}
