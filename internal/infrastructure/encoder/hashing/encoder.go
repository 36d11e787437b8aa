// Package hashing provides an in-process, deterministic text encoder. Tokens
// (unigrams and bigrams) are feature-hashed into a fixed-dimension dense
// vector with saturated term-frequency weights, then L2-normalized so cosine
// scores land in [0,1] for non-negative weight overlap. The encoder holds no
// mutable state, so concurrent callers never see interleaved batches.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/physai/textbook-rag/internal/core/domain"
)

const (
	// DefaultDimension matches the vector index collection size. Changing one
	// without the other is a fatal configuration error caught at startup.
	DefaultDimension = 384

	tfSaturationK = 1.2
	bigramWeight  = 0.5
)

type Encoder struct {
	dimension int
}

func New(dimension int) (*Encoder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hashing encoder: dimension must be positive, got %d", dimension)
	}
	return &Encoder{dimension: dimension}, nil
}

func (e *Encoder) Dimension() int {
	if e == nil {
		return 0
	}
	return e.dimension
}

// Ready reports whether the encoder can serve calls.
func (e *Encoder) Ready() error {
	if e == nil || e.dimension <= 0 {
		return domain.ErrModelUnavailable
	}
	return nil
}

// Encode maps each text to one vector. An empty input yields an empty batch.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Ready(); err != nil {
		return nil, domain.WrapError(domain.ErrModelUnavailable, "encode", err)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.encodeOne(text)
	}
	return out, nil
}

func (e *Encoder) EncodeSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Encoder) encodeOne(text string) []float32 {
	tokens := tokenizeAlphaNum(text)

	termFreq := make(map[int]float64, len(tokens)*2)
	for _, token := range tokens {
		termFreq[e.bucket(token)]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		termFreq[e.bucket(tokens[i]+"_"+tokens[i+1])] += bigramWeight
	}

	vector := make([]float32, e.dimension)
	for bucket, tf := range termFreq {
		// Saturate repeated terms so long chunks do not dominate on raw counts.
		vector[bucket] = float32((tf * (tfSaturationK + 1.0)) / (tf + tfSaturationK))
	}
	l2Normalize(vector)
	return vector
}

func (e *Encoder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
