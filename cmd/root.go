package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceprobe",
	Short: "A CLI tool for running facial identification experiments",
	Long: `Faceprobe builds a template database of face embeddings, identifies
probe photos against it, and evaluates whole probe sets into CSV reports.
Embeddings come from an external embedding service over HTTP.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
