package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/objectstore"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/resilience"
)

// BucketStore reads collections laid out one JSON object per collection, as
// the CRUD layer stores them.
type BucketStore struct {
	bucket       objectstore.Bucket
	breaker      *resilience.CircuitBreaker
	retry        resilience.RetryConfig
	fetchTimeout time.Duration
	logger       *slog.Logger
}

func NewBucketStore(bucket objectstore.Bucket, cfg config.SourceConfig, m *metrics.Metrics) *BucketStore {
	breaker := resilience.NewCircuitBreaker("source", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		ResetTimeout:     cfg.BreakerReset,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, objectstore.ErrObjectNotFound)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
	})
	return &BucketStore{
		bucket:  bucket,
		breaker: breaker,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay,
			Retryable: func(err error) bool {
				return !errors.Is(err, resilience.ErrCircuitOpen)
			},
		},
		fetchTimeout: cfg.FetchTimeout,
		logger:       slog.Default().With("component", "source", "bucket", bucket.Name()),
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (s *BucketStore) Breaker() *resilience.CircuitBreaker {
	return s.breaker
}

func (s *BucketStore) ListRecords(ctx context.Context, kind catalog.Kind) ([]catalog.Record, error) {
	schema := kind.Schema()
	if schema.Object == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown collection %s", kind)
	}
	data, err := s.fetch(ctx, schema.Object)
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		s.logger.Info("collection object missing, treating as empty", "collection", kind, "object", schema.Object)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w: %w", kind, apperrors.ErrSourceUnavailable, err)
	}
	records, err := Decode(schema, data)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w: %w", kind, apperrors.ErrSourceUnavailable, err)
	}
	return records, nil
}

// GetRecord reads the whole collection object; the layout has no per-record
// keys.
func (s *BucketStore) GetRecord(ctx context.Context, kind catalog.Kind, id string) (catalog.Record, error) {
	records, err := s.ListRecords(ctx, kind)
	if err != nil {
		return nil, err
	}
	schema := kind.Schema()
	for _, r := range records {
		if r != nil && schema.ID(r) == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s:%s: %w", kind, id, apperrors.ErrRecordNotFound)
}

func (s *BucketStore) fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := resilience.RetryValue(ctx, "source.get "+key, s.retry, func() ([]byte, error) {
		var data []byte
		err := s.breaker.Execute(func() error {
			var err error
			data, err = resilience.TimeoutValue(ctx, s.fetchTimeout, "source.get", func(ctx context.Context) ([]byte, error) {
				return s.bucket.Get(ctx, key)
			})
			return err
		})
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, objectstore.ErrObjectNotFound
	}
	return data, nil
}

// Decode unwraps a collection object. It accepts a bare array, an object
// holding the array under one of the schema's keys, or for grouped
// collections an object of named sub-arrays. Array items that are not JSON
// objects become nil records so the extractor can count them as malformed.
func Decode(schema catalog.Schema, data []byte) ([]catalog.Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", schema.Object, err)
	}
	switch v := raw.(type) {
	case []any:
		return toRecords(v, ""), nil
	case map[string]any:
		for _, key := range schema.ArrayKeys {
			inner, ok := v[key]
			if !ok {
				continue
			}
			switch t := inner.(type) {
			case []any:
				return toRecords(t, ""), nil
			case map[string]any:
				if len(schema.Groups) == 0 {
					return nil, fmt.Errorf("decoding %s: %q is an object", schema.Object, key)
				}
				var out []catalog.Record
				for _, group := range schema.Groups {
					if items, ok := t[group].([]any); ok {
						out = append(out, toRecords(items, group)...)
					}
				}
				return out, nil
			case nil:
				return nil, nil
			default:
				return nil, fmt.Errorf("decoding %s: %q is neither array nor object", schema.Object, key)
			}
		}
		return nil, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("decoding %s: unexpected top-level %T", schema.Object, raw)
}

func toRecords(items []any, group string) []catalog.Record {
	out := make([]catalog.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, nil)
			continue
		}
		r := catalog.Record(obj)
		if group != "" {
			if _, set := r["componentType"]; !set {
				r["componentType"] = group
			}
		}
		out = append(out, r)
	}
	return out
}
