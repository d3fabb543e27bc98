package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/internal"
	"github.com/getzep/reviewpulse/pkg/httputil"
	"github.com/getzep/reviewpulse/pkg/metrics"
	"github.com/getzep/reviewpulse/pkg/models"
)

const (
	APIKeyHeader = "x-rapidapi-key"
	HostHeader   = "x-rapidapi-host"
)

var ErrFetch = errors.New("review fetch failed")

var log = internal.GetLogger()

var _ models.ReviewFetcher = &Fetcher{}

// FetchError carries the status of a non-2xx response from the reviews API.
type FetchError struct {
	StatusCode int
	Body       []byte
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("reviews api returned status %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return ErrFetch
}

// Fetcher retrieves the first page of reviews for a single hotel.
type Fetcher struct {
	cfg        config.ReviewsConfig
	httpClient *http.Client
}

func NewFetcher(cfg config.ReviewsConfig, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = httputil.NewRetryableHTTPClient(0, cfg.Timeout)
	}
	return &Fetcher{cfg: cfg, httpClient: httpClient}
}

func (f *Fetcher) query() url.Values {
	q := url.Values{}
	q.Set("page_number", "0")
	q.Set("hotel_id", f.cfg.HotelID)
	setIfPresent(q, "language_filter", f.cfg.LanguageFilter)
	setIfPresent(q, "locale", f.cfg.Locale)
	setIfPresent(q, "sort_type", f.cfg.SortType)
	setIfPresent(q, "customer_type", f.cfg.CustomerType)
	return q
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// Fetch returns the response body as compact JSON.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	data, err := f.fetch(ctx)
	if err != nil {
		metrics.ReviewFetchesTotal.WithLabelValues("failure").Inc()
		log.WithError(err).Error("error calling the reviews api")
		return nil, err
	}
	metrics.ReviewFetchesTotal.WithLabelValues("success").Inc()
	log.WithField("hotel_id", f.cfg.HotelID).Infof("retrieved hotel reviews: %s", data)
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	if err := config.ValidateReviews(&config.Config{Reviews: f.cfg}); err != nil {
		return nil, err
	}

	u, err := url.Parse(f.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid reviews url: %w", err)
	}
	u.RawQuery = f.query().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create reviews request: %w", err)
	}
	req.Header.Set(APIKeyHeader, f.cfg.APIKey)
	req.Header.Set(HostHeader, f.cfg.Host)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   internal.TruncateBody(body, internal.MaxLoggedBodyBytes),
		}).Debug("reviews api error response")
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: body}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %w", ErrFetch, err)
	}
	return compact.Bytes(), nil
}
