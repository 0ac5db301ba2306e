// Package vector adapts the core to an external, networked vector database
// over its REST API. Every outbound call is wrapped with retry/backoff
// (retry.go) and a circuit breaker, adapted from the reference backend's
// HTTP circuit-breaker middleware (gobreaker.NewCircuitBreaker with the same
// ReadyToTrip/OnStateChange shape) but used client-side rather than to guard
// an inbound HTTP handler.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"agentmemory/internal/model"
	"agentmemory/pkg/apperr"
)

// Filter is the Qdrant-shaped filter DSL the core passes through verbatim.
type Filter struct {
	Must []Condition `json:"must,omitempty"`
}

// Condition is either a {key, match:{value}} leaf or a {should:[...]} OR-group.
type Condition struct {
	Key    string      `json:"key,omitempty"`
	Match  *MatchValue `json:"match,omitempty"`
	Should []Condition `json:"should,omitempty"`
}

type MatchValue struct {
	Value any `json:"value"`
}

// MatchField builds a {key, match:{value}} leaf condition.
func MatchField(key string, value any) Condition {
	return Condition{Key: key, Match: &MatchValue{Value: value}}
}

// OrFields builds a {must:[{should:[...]}]}-style OR-within-field condition.
func OrFields(conditions ...Condition) Condition {
	return Condition{Should: conditions}
}

// Gateway talks to the external vector database.
type Gateway struct {
	baseURL    string
	collection string
	vectorSize int
	maxRetries int
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// Config configures a Gateway.
type Config struct {
	Host       string
	Port       int
	Collection string
	VectorSize int
	MaxRetries int
	Timeout    time.Duration
}

// New builds a Gateway with a circuit breaker matching the reference
// backend's DefaultCircuitBreakerConfig shape (MaxRequests 3, Interval 10s,
// Timeout 30s, FailureThreshold 0.6, MinRequests 3).
func New(cfg Config, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vector-gateway",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("vector gateway circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &Gateway{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		log:        log,
	}
}

// EnsureCollection creates the collection if missing (cosine distance, the
// configured vector size) and declares keyword payload indices. Index
// creation failures are logged, not fatal — they may already exist.
func (g *Gateway) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{"size": g.vectorSize, "distance": "Cosine"},
	}
	if err := g.call(ctx, http.MethodPut, "/collections/"+g.collection, body, nil); err != nil {
		return apperr.Wrap(err, "failed to ensure collection")
	}
	for _, field := range []string{"namespace", "source_agent", "source_type", "userId"} {
		idxBody := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := g.call(ctx, http.MethodPut, "/collections/"+g.collection+"/index", idxBody, nil); err != nil {
			g.log.Warn("failed to create payload index, it may already exist", zap.String("field", field), zap.Error(err))
		}
	}
	return nil
}

// Upsert writes or overwrites memory points.
func (g *Gateway) Upsert(ctx context.Context, points []model.MemoryPoint) error {
	wirePoints := make([]map[string]any, 0, len(points))
	for _, p := range points {
		wirePoints = append(wirePoints, map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"text":        p.Text,
				"namespace":   p.Namespace,
				"source_agent": p.SourceAgent,
				"source_type": p.SourceType,
				"userId":      p.UserID,
				"sessionId":   p.SessionID,
				"timestamp":   p.Timestamp,
				"updatedAt":   p.UpdatedAt,
				"confidence":  p.Confidence,
				"tags":        p.Tags,
				"metadata":    p.Metadata,
			},
		})
	}
	body := map[string]any{"points": wirePoints}
	if err := g.call(ctx, http.MethodPut, "/collections/"+g.collection+"/points", body, nil); err != nil {
		return apperr.Wrap(err, "failed to upsert points")
	}
	return nil
}

// Search runs a filtered k-NN search, returning ranked hits.
func (g *Gateway) Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]model.SearchResult, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		body["filter"] = filter
	}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := g.call(ctx, http.MethodPost, "/collections/"+g.collection+"/points/search", body, &resp); err != nil {
		return nil, apperr.Wrap(err, "failed to search")
	}
	out := make([]model.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, model.SearchResult{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return out, nil
}

// DeleteByFilter removes every point matching filter.
func (g *Gateway) DeleteByFilter(ctx context.Context, filter Filter) error {
	body := map[string]any{"filter": filter}
	if err := g.call(ctx, http.MethodPost, "/collections/"+g.collection+"/points/delete", body, nil); err != nil {
		return apperr.Wrap(err, "failed to delete by filter")
	}
	return nil
}

// call performs one HTTP round trip through the circuit breaker and retry
// wrapper, decoding the JSON response body into out when non-nil.
func (g *Gateway) call(ctx context.Context, method, path string, body any, out any) error {
	_, err := g.breaker.Execute(func() (any, error) {
		retryErr := withRetry(ctx, g.maxRetries, func() error {
			return g.doOnce(ctx, method, path, body, out)
		})
		return nil, retryErr
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperr.NewRemoteTransient("vector gateway circuit breaker open", err)
		}
		return err
	}
	return nil
}

func (g *Gateway) doOnce(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperr.NewValidation("invalid_body", "request body is not serializable")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("vector gateway server error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return apperr.NewValidation("vector_gateway_error", fmt.Sprintf("status %d: %s", resp.StatusCode, string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.NewRemoteTransient("failed to decode response", err)
		}
	}
	return nil
}
