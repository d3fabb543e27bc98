package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/reviewpulse/config"
)

func testConfig(url string) config.ReviewsConfig {
	cfg := config.Defaults().Reviews
	cfg.URL = url
	cfg.APIKey = "test-rapidapi-key"
	return cfg
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-rapidapi-key", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "booking-com.p.rapidapi.com", r.Header.Get(HostHeader))

		q := r.URL.Query()
		assert.Equal(t, "0", q.Get("page_number"))
		assert.Equal(t, "1676161", q.Get("hotel_id"))
		assert.Equal(t, "en-gb", q.Get("locale"))
		assert.Equal(t, "en-gb,de,fr", q.Get("language_filter"))
		assert.Equal(t, "SORT_MOST_RELEVANT", q.Get("sort_type"))
		assert.Equal(t, "solo_traveller,review_category_group_of_friends", q.Get("customer_type"))

		_, _ = w.Write([]byte(`{
			"count": 1,
			"result": [{"review_id": 7, "pros": "Great location"}]
		}`))
	}))
	defer srv.Close()

	data, err := NewFetcher(testConfig(srv.URL), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"count":1,"result":[{"review_id":7,"pros":"Great location"}]}`, string(data))
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You have exceeded the rate limit"}`))
	}))
	defer srv.Close()

	_, err := NewFetcher(testConfig(srv.URL), nil).Fetch(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := NewFetcher(testConfig(srv.URL), nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchMissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""

	_, err := NewFetcher(cfg, nil).Fetch(context.Background())

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Missing, "reviews.api_key")
	assert.Equal(t, int32(0), calls.Load())
}

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(_ context.Context) ([]byte, error) {
	f.calls.Add(1)
	return nil, ErrFetch
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	fetcher := &countingFetcher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := NewScheduler(fetcher, 10*time.Millisecond).Start(ctx)

	// failures do not stop the loop
	assert.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestNewSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(&countingFetcher{}, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}
