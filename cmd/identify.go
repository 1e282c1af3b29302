package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/matcher"
	"github.com/veidt/faceprobe/internal/metric"
	"github.com/veidt/faceprobe/internal/store"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify a single photo against the template database",
	Long: `Embed the photo, scan the template database for the nearest match and
report it. With --threshold set, matches above the threshold are rejected
as "No match". An embedding failure on the probe photo reports "Error"
instead of aborting.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	addMatchFlags(identifyCmd)
	identifyCmd.Flags().Int("candidates", 0, "Also list the K nearest template candidates")
	identifyCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	model, met, threshold, err := resolveMatchConfig(cmd, cfg)
	if err != nil {
		return err
	}

	provider := embedding.NewClient(cfg.Embedding.URL, model)
	asJSON := mustGetBool(cmd, "json")

	s, err := buildTemplateStore(ctx, mustGetString(cmd, "templates"), provider, !asJSON)
	if err != nil {
		return err
	}

	m := matcher.New(s, provider, met, threshold)
	result, err := m.Identify(ctx, args[0])
	if err != nil {
		return fmt.Errorf("identifying %s: %w", args[0], err)
	}

	var candidates []store.Candidate
	if k := mustGetInt(cmd, "candidates"); k > 0 {
		candidates, err = nearestCandidates(ctx, s, provider, met, args[0], k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: candidate listing failed: %v\n", err)
		}
	}

	if asJSON {
		out := struct {
			Result     matcher.Result    `json:"result"`
			Model      string            `json:"model"`
			Metric     string            `json:"metric"`
			Threshold  *float64          `json:"threshold"`
			Candidates []store.Candidate `json:"candidates,omitempty"`
		}{result, model, string(met), threshold, candidates}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printIdentifyResult(s, result)
	for i, c := range candidates {
		fmt.Printf("  %d. %s (%s) distance %.4f\n", i+1, c.PersonID, c.Key, c.Distance)
	}
	return nil
}

func printIdentifyResult(s *store.Store, result matcher.Result) {
	switch {
	case result.Accepted:
		fmt.Printf("They are %s (person %s, distance %.4f)\n", result.Name, result.PersonID, result.Distance)
		if img := s.FirstImage(result.PersonID); img != "" {
			fmt.Printf("Template image: %s\n", img)
		}
	case result.Name == matcher.NameError:
		fmt.Printf("Error: %s\n", result.Error)
	case result.HasDistance:
		fmt.Printf("No match (nearest distance %.4f is above the threshold)\n", result.Distance)
	default:
		fmt.Println("No match (template database is empty)")
	}
}

// nearestCandidates embeds the probe once more and asks the index for the
// K nearest templates. Kept separate from Identify so the linear-scan
// matching result never depends on the approximate index.
func nearestCandidates(ctx context.Context, s *store.Store, provider embedding.Provider, met metric.Metric, path string, k int) ([]store.Candidate, error) {
	query, err := provider.Embed(ctx, path)
	if err != nil {
		return nil, err
	}
	ix, err := store.NewIndex(s, met)
	if err != nil {
		return nil, err
	}
	return ix.Candidates(query, k)
}
