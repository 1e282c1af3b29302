package cmd

import (
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Download the reference dataset and assemble experiment manifests",
}

func init() {
	rootCmd.AddCommand(datasetCmd)
}
