package whois

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"bankflow/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLookupSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		assert.Equal(t, "country,isp", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"country":"Taiwan","isp":"Example Telecom"}`))
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))
	result := client.Lookup(context.Background(), "203.0.113.7")

	assert.True(t, result.QuerySuccess)
	assert.Equal(t, "Taiwan", result.Country)
	assert.Equal(t, "Example Telecom", result.ISP)
}

func TestLookupCaching(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"country":"Taiwan","isp":"Example Telecom"}`))
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))
	for i := 0; i < 5; i++ {
		client.Lookup(context.Background(), "203.0.113.7")
	}

	assert.Equal(t, int32(1), calls.Load(), "repeated lookups hit the cache")
	assert.Equal(t, 1, client.CacheSize())
}

func TestLookupCacheCounters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"Taiwan","isp":"Example Telecom"}`))
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))

	hits := testutil.ToFloat64(metrics.WhoisCacheHitsTotal)
	misses := testutil.ToFloat64(metrics.WhoisCacheMissesTotal)

	client.Lookup(context.Background(), "203.0.113.7")
	client.Lookup(context.Background(), "203.0.113.7")
	client.Lookup(context.Background(), "198.51.100.4")

	assert.Equal(t, misses+2, testutil.ToFloat64(metrics.WhoisCacheMissesTotal))
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.WhoisCacheHitsTotal))
}

func TestLookupFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))
	result := client.Lookup(context.Background(), "203.0.113.7")

	assert.False(t, result.QuerySuccess)
	assert.Equal(t, "Error", result.Country)
	assert.Equal(t, "Error", result.ISP)
}

func TestLookupFailureIsCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))
	client.Lookup(context.Background(), "203.0.113.7")
	client.Lookup(context.Background(), "203.0.113.7")

	assert.Equal(t, int32(1), calls.Load(), "failures are not retried within a run")
}

func TestLookupEmptyIP(t *testing.T) {
	client := NewClient(testLogger(), WithRateLimit(rate.Inf))
	result := client.Lookup(context.Background(), "")

	assert.False(t, result.QuerySuccess)
	assert.Empty(t, result.Country)
	assert.Equal(t, 0, client.CacheSize(), "empty lookups are not cached")
}

func TestLookupMissingFieldsDefaultToUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(testLogger(), WithEndpoint(server.URL), WithRateLimit(rate.Inf))
	result := client.Lookup(context.Background(), "203.0.113.7")

	require.True(t, result.QuerySuccess)
	assert.Equal(t, "Unknown", result.Country)
	assert.Equal(t, "Unknown", result.ISP)
}
