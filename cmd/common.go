package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/manifest"
	"github.com/veidt/faceprobe/internal/metric"
	"github.com/veidt/faceprobe/internal/store"
)

// addMatchFlags registers the flags shared by every command that builds a
// template store and matches against it.
func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("templates", "", "Template manifest file (JSON, person ID -> image paths)")
	cmd.Flags().String("model", "", "Face embedding model name (defaults to EMBEDDING_MODEL)")
	cmd.Flags().String("metric", "", "Distance metric: cosine or euclidean (defaults to DISTANCE_METRIC)")
	cmd.Flags().Float64("threshold", 0, "Acceptance threshold; omit to accept the nearest match unconditionally")
	cmd.Flags().Bool("default-threshold", false, "Use the published threshold for the chosen model and metric")
	_ = cmd.MarkFlagRequired("templates")
}

// resolveMatchConfig merges flags over environment configuration and
// validates the metric. A nil threshold means no acceptance gate.
func resolveMatchConfig(cmd *cobra.Command, cfg *config.Config) (string, metric.Metric, *float64, error) {
	model := mustGetString(cmd, "model")
	if model == "" {
		model = cfg.Embedding.Model
	}
	metricName := mustGetString(cmd, "metric")
	if metricName == "" {
		metricName = cfg.Match.Metric
	}
	met, err := metric.Parse(metricName)
	if err != nil {
		return "", "", nil, err
	}

	threshold := cfg.Match.Threshold
	if cmd.Flags().Changed("threshold") {
		v := mustGetFloat64(cmd, "threshold")
		threshold = &v
	} else if mustGetBool(cmd, "default-threshold") {
		v, ok := cfg.DefaultThreshold(model, string(met))
		if !ok {
			return "", "", nil, fmt.Errorf("no published threshold for model %s with %s distance", model, met)
		}
		threshold = &v
	}

	if !cfg.KnownModel(model) {
		fmt.Fprintf(os.Stderr, "Warning: model %q is not in the model registry, passing it through to the embedding service\n", model)
	}

	return model, met, threshold, nil
}

// buildTemplateStore loads a template manifest and embeds every image.
// Any embedding failure aborts the build.
func buildTemplateStore(ctx context.Context, templatesPath string, provider embedding.Provider, showProgress bool) (*store.Store, error) {
	m, err := manifest.Load(templatesPath)
	if err != nil {
		return nil, fmt.Errorf("loading template manifest: %w", err)
	}

	var onEmbed func(store.Entry)
	if showProgress {
		bar := progressbar.NewOptions(m.ImageCount(),
			progressbar.OptionSetDescription("Embedding templates"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		onEmbed = func(store.Entry) {
			_ = bar.Add(1)
		}
	}

	s, err := store.BuildWithProgress(ctx, m, provider, onEmbed)
	if err != nil {
		return nil, fmt.Errorf("building template store: %w", err)
	}

	fmt.Printf("Template database ready: %d templates across %d individuals\n", s.Len(), s.PersonCount())
	return s, nil
}
