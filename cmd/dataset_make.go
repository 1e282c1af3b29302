package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/dataset"
)

var datasetMakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Assemble template and probe manifests from the extracted dataset",
	Long: `Sample the extracted dataset into two disjoint manifests: templates
(enrolled into the database) and probes (queried against it). Participants
marked as withdrawn in the dataset readme are excluded. Sampling is seeded,
so the same flags always produce the same manifests.`,
	RunE: runDatasetMake,
}

func init() {
	datasetCmd.AddCommand(datasetMakeCmd)

	datasetMakeCmd.Flags().String("source", "", "Extracted dataset directory (defaults to DATA_EXTRACT_DIR)")
	datasetMakeCmd.Flags().String("readme", "", "Dataset readme listing withdrawn participants (defaults to <source>/readme.txt)")
	datasetMakeCmd.Flags().String("templates", "data/experiment/templates.json", "Output path for the template manifest")
	datasetMakeCmd.Flags().String("probes", "data/experiment/probes.json", "Output path for the probe manifest")
	datasetMakeCmd.Flags().Int("individuals", 0, "How many people to enroll (0 = everyone)")
	datasetMakeCmd.Flags().Int("probe-individuals", 0, "How many enrolled people also get probes (0 = all enrolled)")
	datasetMakeCmd.Flags().Int("template-images", 1, "Template images per person")
	datasetMakeCmd.Flags().Int("probe-images", 1, "Probe images per person")
	datasetMakeCmd.Flags().Int64("seed", 42, "Sampling seed")
}

func runDatasetMake(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	source := mustGetString(cmd, "source")
	if source == "" {
		source = cfg.Data.ExtractDir
	}
	readme := mustGetString(cmd, "readme")
	if readme == "" {
		readme = filepath.Join(source, "readme.txt")
	}

	excluded, err := dataset.LoadExclusions(readme)
	if err != nil {
		return fmt.Errorf("loading exclusions: %w", err)
	}
	if len(excluded) > 0 {
		fmt.Printf("Excluding %d withdrawn participants\n", len(excluded))
	}

	a := &dataset.Assembler{
		Root:     source,
		Excluded: excluded,
	}
	templates, probes, err := a.Make(dataset.MakeOptions{
		MaxIndividuals:      mustGetInt(cmd, "individuals"),
		MaxProbeIndividuals: mustGetInt(cmd, "probe-individuals"),
		TemplateImages:      mustGetInt(cmd, "template-images"),
		ProbeImages:         mustGetInt(cmd, "probe-images"),
		Seed:                mustGetInt64(cmd, "seed"),
	})
	if err != nil {
		return fmt.Errorf("assembling manifests: %w", err)
	}

	templatesPath := mustGetString(cmd, "templates")
	if err := templates.Save(templatesPath); err != nil {
		return fmt.Errorf("saving template manifest: %w", err)
	}
	probesPath := mustGetString(cmd, "probes")
	if err := probes.Save(probesPath); err != nil {
		return fmt.Errorf("saving probe manifest: %w", err)
	}

	fmt.Printf("Templates: %d individuals, %d images -> %s\n", len(templates), templates.ImageCount(), templatesPath)
	fmt.Printf("Probes:    %d individuals, %d images -> %s\n", len(probes), probes.ImageCount(), probesPath)
	return nil
}
