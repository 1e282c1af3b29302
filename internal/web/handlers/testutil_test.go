package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/manifest"
	"github.com/veidt/faceprobe/internal/metric"
	"github.com/veidt/faceprobe/internal/store"
)

// contentProvider maps the *content* of an image file to an embedding, so
// tests can steer results through the uploaded bytes.
func contentProvider(embeddings map[string][]float32) embedding.Provider {
	return embedding.ProviderFunc{
		ModelName: "VGG-Face",
		Fn: func(_ context.Context, path string) ([]float32, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			emb, ok := embeddings[string(data)]
			if !ok {
				return nil, fmt.Errorf("no face found in %s", path)
			}
			return emb, nil
		},
	}
}

// testDeps builds deps with three enrolled people whose template files are
// real files on disk containing their own name.
func testDeps(t *testing.T, threshold *float64) *Deps {
	t.Helper()

	embeddings := map[string][]float32{
		"alice": {1, 0, 0},
		"bob":   {0, 1, 0},
		"carol": {0, 0, 1},
	}

	dir := t.TempDir()
	m := manifest.Manifest{}
	for person := range embeddings {
		path := dir + "/" + person + ".jpg"
		if err := os.WriteFile(path, []byte(person), 0o644); err != nil {
			t.Fatal(err)
		}
		m[person] = []string{path}
	}

	provider := contentProvider(embeddings)
	s, err := store.Build(context.Background(), m, provider)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := store.NewIndex(s, metric.Cosine)
	if err != nil {
		t.Fatal(err)
	}

	return &Deps{
		Config:    config.Load(),
		Store:     s,
		Index:     ix,
		Provider:  provider,
		Metric:    metric.Cosine,
		Threshold: threshold,
	}
}

// multipartRequest builds a multipart POST with a photo and extra fields.
func multipartRequest(t *testing.T, path string, photo []byte, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if photo != nil {
		part, err := writer.CreateFormFile("file", "probe.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatal(err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
