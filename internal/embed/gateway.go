// Package embed adapts the core to an external embedding service, with a
// deterministic hash-based fallback used only as a diagnostic stand-in (not
// a semantic one) when the remote service is unavailable.
package embed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Gateway embeds text via a remote HTTP endpoint, falling back to a
// deterministic hash-based pseudo-embedding on any failure.
type Gateway struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
	log        *zap.Logger
}

// Config configures a Gateway.
type Config struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

func New(cfg Config, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}
	return &Gateway{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Embed returns a vector for text, trying the remote service first and
// falling back to HashEmbed on any failure.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	if vec, err := g.remoteEmbed(ctx, text); err == nil {
		return vec
	} else {
		g.log.Warn("embed gateway falling back to hash embedding", zap.Error(err))
	}
	return HashEmbed(text, g.dimensions)
}

func (g *Gateway) remoteEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{"model": g.model, "input": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty embedding")
	}
	return decoded.Embedding, nil
}

// HashEmbed produces a deterministic pseudo-embedding of dimensions length
// by repeatedly re-hashing the text with a counter and mapping each 4-byte
// chunk to a float in [-1, 1]. This is diagnostic, not semantic: it lets
// storage and deduplication keep functioning when the real embedder is down,
// without claiming any notion of meaning.
func HashEmbed(text string, dimensions int) []float32 {
	vec := make([]float32, dimensions)
	counter := uint32(0)
	buf := make([]byte, 0, dimensions*4)
	for len(buf) < dimensions*4 {
		h := sha256.New()
		h.Write([]byte(text))
		var ctrBytes [4]byte
		binary.BigEndian.PutUint32(ctrBytes[:], counter)
		h.Write(ctrBytes[:])
		buf = append(buf, h.Sum(nil)...)
		counter++
	}
	for i := 0; i < dimensions; i++ {
		u := binary.BigEndian.Uint32(buf[i*4 : i*4+4])
		vec[i] = float32(int32(u))/math.MaxInt32
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// CosineSimilarity computes cosine similarity between two equal-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
