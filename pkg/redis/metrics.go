package redis

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

var (
	redisRequestsTotal   *prometheus.CounterVec
	redisErrorsTotal     *prometheus.CounterVec
	redisRequestDuration *prometheus.HistogramVec
)

func init() {
	redisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_requests_total",
			Help: "Total number of Redis requests by method.",
		},
		[]string{"method"},
	)
	redisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors by method. Cache misses are not errors.",
		},
		[]string{"method"},
	)
	redisRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_request_duration_seconds",
			Help:    "Redis request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	prometheus.MustRegister(redisRequestsTotal, redisErrorsTotal, redisRequestDuration)
}

// MetricsClient wraps Client to collect Prometheus metrics.
type MetricsClient struct {
	next *Client
}

// NewMetricsClient creates an instrumented Redis client.
func NewMetricsClient(next *Client) *MetricsClient {
	return &MetricsClient{next: next}
}

func observe(method string, fn func() error) error {
	timer := prometheus.NewTimer(redisRequestDuration.WithLabelValues(method))
	err := fn()
	timer.ObserveDuration()
	redisRequestsTotal.WithLabelValues(method).Inc()
	if err != nil && !errors.Is(err, goredis.Nil) {
		redisErrorsTotal.WithLabelValues(method).Inc()
	}
	return err
}

// Get instruments Client.Get.
func (m *MetricsClient) Get(ctx context.Context, key string) (string, error) {
	var result string
	err := observe("get", func() (err error) {
		result, err = m.next.Get(ctx, key)
		return err
	})
	return result, err
}

// Set instruments Client.Set.
func (m *MetricsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return observe("set", func() error {
		return m.next.Set(ctx, key, value, ttl)
	})
}

// SetNX instruments Client.SetNX.
func (m *MetricsClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	var ok bool
	err := observe("setnx", func() (err error) {
		ok, err = m.next.SetNX(ctx, key, value, ttl)
		return err
	})
	return ok, err
}

// Delete instruments Client.Delete.
func (m *MetricsClient) Delete(ctx context.Context, key string) error {
	return observe("delete", func() error {
		return m.next.Delete(ctx, key)
	})
}

// CompareAndDelete instruments Client.CompareAndDelete.
func (m *MetricsClient) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	var removed bool
	err := observe("compare_and_delete", func() (err error) {
		removed, err = m.next.CompareAndDelete(ctx, key, value)
		return err
	})
	return removed, err
}

// CompareAndExpire instruments Client.CompareAndExpire.
func (m *MetricsClient) CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var renewed bool
	err := observe("compare_and_expire", func() (err error) {
		renewed, err = m.next.CompareAndExpire(ctx, key, value, ttl)
		return err
	})
	return renewed, err
}

// HSetIfValue instruments Client.HSetIfValue.
func (m *MetricsClient) HSetIfValue(ctx context.Context, guardKey, guardValue, key string, fields map[string]string) (bool, error) {
	var written bool
	err := observe("hset_if_value", func() (err error) {
		written, err = m.next.HSetIfValue(ctx, guardKey, guardValue, key, fields)
		return err
	})
	return written, err
}

// HGet instruments Client.HGet.
func (m *MetricsClient) HGet(ctx context.Context, key, field string) (string, error) {
	var result string
	err := observe("hget", func() (err error) {
		result, err = m.next.HGet(ctx, key, field)
		return err
	})
	return result, err
}

// Scan instruments Client.Scan.
func (m *MetricsClient) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	var (
		keys []string
		next uint64
	)
	err := observe("scan", func() (err error) {
		keys, next, err = m.next.Scan(ctx, cursor, match, count)
		return err
	})
	return keys, next, err
}

// Ping forwards to the underlying client so the wrapper can back health checks.
func (m *MetricsClient) Ping(ctx context.Context) *goredis.StatusCmd {
	return m.next.Ping(ctx)
}

// Close closes underlying client.
func (m *MetricsClient) Close() error {
	return m.next.Close()
}

// TxPipeline forwards to the underlying client.
func (m *MetricsClient) TxPipeline() goredis.Pipeliner {
	return m.next.TxPipeline()
}
