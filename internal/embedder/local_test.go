package embedder

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(nil)
	text := "Rohit built a scalable React frontend with a Go backend on AWS."

	a, err := e.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("dimension %d differs between identical inputs: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestLocalEmbedderDimensionsAndNorm(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(nil)
	if e.Dimensions() != LocalDimensions {
		t.Fatalf("Dimensions() = %d, want %d", e.Dimensions(), LocalDimensions)
	}

	vecs, err := e.Embed(context.Background(), []string{
		"Experienced full-stack developer with expertise in TypeScript and PostgreSQL.",
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs[0]) != LocalDimensions {
		t.Fatalf("vector length = %d, want %d", len(vecs[0]), LocalDimensions)
	}

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if mag := math.Sqrt(sum); math.Abs(mag-1.0) > 1e-4 {
		t.Fatalf("vector magnitude = %f, want 1.0", mag)
	}
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(nil)
	vecs, err := e.Embed(context.Background(), []string{"", "   ", "!!!"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, vec := range vecs {
		if len(vec) != LocalDimensions {
			t.Fatalf("vector %d length = %d, want %d", i, len(vec), LocalDimensions)
		}
		for j, v := range vec {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("vector %d dimension %d is %v", i, j, v)
			}
		}
	}
}

func TestLocalEmbedderTopicalSimilarity(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(nil)
	vecs, err := e.Embed(context.Background(), []string{
		"Built cloud infrastructure on AWS with Docker and Kubernetes for serverless deployments.",
		"Deployed serverless workloads to AWS using Kubernetes and Docker containers in the cloud.",
		"Enjoys hiking in the mountains and painting landscapes on quiet weekend mornings.",
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Fatalf("related similarity %f should exceed unrelated %f", related, unrelated)
	}
}

func TestLocalEmbedderContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewLocalEmbedder(nil)
	if _, err := e.Embed(ctx, []string{"anything"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
