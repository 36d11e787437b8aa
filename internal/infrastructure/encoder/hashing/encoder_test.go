package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/physai/textbook-rag/internal/core/domain"
)

func TestEncodeIsDeterministic(t *testing.T) {
	enc, err := New(DefaultDimension)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := enc.EncodeSingle(context.Background(), "Topics enable asynchronous communication")
	if err != nil {
		t.Fatalf("EncodeSingle() error = %v", err)
	}
	second, err := enc.EncodeSingle(context.Background(), "Topics enable asynchronous communication")
	if err != nil {
		t.Fatalf("EncodeSingle() error = %v", err)
	}

	if len(first) != DefaultDimension {
		t.Fatalf("expected %d dims, got %d", DefaultDimension, len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic output at dim %d", i)
		}
	}
}

func TestEncodeEmptyInputReturnsEmptyBatch(t *testing.T) {
	enc, _ := New(DefaultDimension)
	vectors, err := enc.Encode(context.Background(), nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if vectors == nil || len(vectors) != 0 {
		t.Fatalf("expected empty non-nil batch, got %#v", vectors)
	}
}

func TestEncodeOutputIsUnitNorm(t *testing.T) {
	enc, _ := New(DefaultDimension)
	vector, err := enc.EncodeSingle(context.Background(), "publishers and subscribers exchange messages over topics")
	if err != nil {
		t.Fatalf("EncodeSingle() error = %v", err)
	}

	var sum float64
	for _, x := range vector {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Fatalf("expected unit norm, got squared sum %f", sum)
	}
}

func TestEncodeDistinctTextsDiffer(t *testing.T) {
	enc, _ := New(DefaultDimension)
	a, _ := enc.EncodeSingle(context.Background(), "ros topics publish subscribe")
	b, _ := enc.EncodeSingle(context.Background(), "inverse kinematics joint angles")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected distinct vectors for distinct texts")
	}
}

func TestEncodePunctuationOnlyYieldsZeroVector(t *testing.T) {
	enc, _ := New(DefaultDimension)
	vector, err := enc.EncodeSingle(context.Background(), "?!?!... ;;; !!!???")
	if err != nil {
		t.Fatalf("EncodeSingle() error = %v", err)
	}
	for i, x := range vector {
		if x != 0 {
			t.Fatalf("expected zero vector for featureless text, got %f at dim %d", x, i)
		}
	}
}

func TestNewRejectsNonPositiveDimension(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
}

func TestNilEncoderReportsModelUnavailable(t *testing.T) {
	var enc *Encoder
	if err := enc.Ready(); !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	_, err := enc.Encode(context.Background(), []string{"text"})
	if !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable from Encode, got %v", err)
	}
}
