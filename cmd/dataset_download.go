package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/dataset"
)

var datasetDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and extract the face dataset archives",
	Long: `Download the RGB emotion subset of the Tufts Face Database and extract
it for manifest assembly. Archives that are already present are kept, so an
interrupted download can be resumed by running the command again.`,
	RunE: runDatasetDownload,
}

func init() {
	datasetCmd.AddCommand(datasetDownloadCmd)

	datasetDownloadCmd.Flags().String("base-url", dataset.DefaultBaseURL, "Base URL of the dataset archives")
	datasetDownloadCmd.Flags().StringSlice("files", nil, "Archive file names to fetch (defaults to the full set)")
	datasetDownloadCmd.Flags().String("download-dir", "", "Directory for downloaded archives (defaults to DATA_DOWNLOAD_DIR)")
	datasetDownloadCmd.Flags().String("extract-dir", "", "Directory for extracted images (defaults to DATA_EXTRACT_DIR)")
	datasetDownloadCmd.Flags().Int("workers", 0, "Parallel downloads (default 16)")
	datasetDownloadCmd.Flags().Bool("progress", true, "Show per-file progress bars")
}

func runDatasetDownload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	downloadDir := mustGetString(cmd, "download-dir")
	if downloadDir == "" {
		downloadDir = cfg.Data.DownloadDir
	}
	extractDir := mustGetString(cmd, "extract-dir")
	if extractDir == "" {
		extractDir = cfg.Data.ExtractDir
	}

	d := &dataset.Downloader{
		BaseURL:     mustGetString(cmd, "base-url"),
		Files:       mustGetStringSlice(cmd, "files"),
		DownloadDir: downloadDir,
		ExtractDir:  extractDir,
		Workers:     mustGetInt(cmd, "workers"),
		Progress:    mustGetBool(cmd, "progress"),
	}

	results := d.Run(cmd.Context())

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("FAILED  %s: %v\n", res.File, res.Err)
		} else {
			fmt.Printf("ok      %s\n", res.File)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d archives failed", failed, len(results))
	}
	fmt.Printf("Dataset extracted to %s\n", extractDir)
	return nil
}
