package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/evaluator"
	"github.com/veidt/faceprobe/internal/manifest"
	"github.com/veidt/faceprobe/internal/matcher"
	"github.com/veidt/faceprobe/internal/metric"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch identification experiment",
	Long: `Build the template database, identify every probe image against it and
write the per-probe results to a CSV file named after the model and metric.
The summary (accuracy, precision, rejection rate, confusion counts and
per-individual accuracy) is printed at the end.`,
	RunE: runExperiment,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addMatchFlags(runCmd)
	runCmd.Flags().String("probes", "", "Probe manifest file (JSON, person ID -> image paths)")
	runCmd.Flags().Int("concurrency", 4, "Probes evaluated in parallel")
	runCmd.Flags().String("output", "", "Directory for the results CSV (defaults to RESULTS_DIR)")
	runCmd.Flags().Bool("json", false, "Print the summary as JSON")
	_ = runCmd.MarkFlagRequired("probes")
}

func runExperiment(cmd *cobra.Command, args []string) error {
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

	probes, err := manifest.Load(mustGetString(cmd, "probes"))
	if err != nil {
		return fmt.Errorf("loading probe manifest: %w", err)
	}

	opts := evaluator.Options{Concurrency: mustGetInt(cmd, "concurrency")}
	if !asJSON {
		bar := progressbar.NewOptions(probes.ImageCount(),
			progressbar.OptionSetDescription("Evaluating probes"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("probes"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		opts.OnRecord = func(evaluator.Record) {
			_ = bar.Add(1)
		}
	}

	m := matcher.New(s, provider, met, threshold)
	report := evaluator.Run(ctx, probes, m, opts)
	summary := report.Summary()

	outputDir := mustGetString(cmd, "output")
	if outputDir == "" {
		outputDir = cfg.Data.ResultsDir
	}
	csvPath, err := report.SaveCSV(outputDir, model, met)
	if err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	if asJSON {
		out := struct {
			Summary   evaluator.Summary `json:"summary"`
			Model     string            `json:"model"`
			Metric    string            `json:"metric"`
			Threshold *float64          `json:"threshold"`
			CSV       string            `json:"csv"`
		}{summary, model, string(met), threshold, csvPath}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printSummary(summary, model, met, threshold)
	fmt.Printf("\nResults written to %s\n", csvPath)
	return nil
}

func printSummary(s evaluator.Summary, model string, met metric.Metric, threshold *float64) {
	fmt.Printf("\nExperiment results (%s, %s distance)\n", model, met)
	if threshold != nil {
		fmt.Printf("Threshold:          %.4f\n", *threshold)
	} else {
		fmt.Printf("Threshold:          none (nearest match always accepted)\n")
	}
	fmt.Printf("Probes:             %d\n", s.Total)
	fmt.Printf("Accuracy:           %.2f%%\n", s.Accuracy*100)
	fmt.Printf("Precision:          %.2f%%\n", s.Precision*100)
	fmt.Printf("Rejection rate:     %.2f%%\n", s.RejectionRate*100)
	fmt.Printf("Confusion:          TP=%d FP=%d TN=%d FN=%d\n",
		s.TruePositives, s.FalsePositives, s.TrueNegatives, s.FalseNegatives)

	if len(s.PerPerson) > 0 {
		fmt.Printf("Best individual:    %s (%.2f%%, %d probes)\n", s.Best.PersonID, s.Best.Accuracy*100, s.Best.Count)
		fmt.Printf("Worst individual:   %s (%.2f%%, %d probes)\n", s.Worst.PersonID, s.Worst.Accuracy*100, s.Worst.Count)
		fmt.Printf("Mean per-person:    %.2f%%\n", s.MeanPersonAccuracy*100)
	}
}
