// Package embedding talks to the external face-embedding service. The
// harness never computes embeddings itself; it only ships images to the
// service and consumes the returned vectors.
package embedding

import "context"

// Provider turns an image path into a face embedding. Both template store
// construction and query identification go through this interface so tests
// can substitute a deterministic implementation.
type Provider interface {
	// Embed returns the face embedding for the image at path.
	Embed(ctx context.Context, path string) ([]float32, error)
	// Model returns the name of the embedding model in use.
	Model() string
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	Fn        func(ctx context.Context, path string) ([]float32, error)
	ModelName string
}

func (p ProviderFunc) Embed(ctx context.Context, path string) ([]float32, error) {
	return p.Fn(ctx, path)
}

func (p ProviderFunc) Model() string {
	if p.ModelName == "" {
		return "custom"
	}
	return p.ModelName
}
