package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veidt/faceprobe/internal/config"
	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/store"
	"github.com/veidt/faceprobe/internal/web"
	"github.com/veidt/faceprobe/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identification web server",
	Long: `Build the template database once at startup and serve a browser UI for
uploading probe photos. The API exposes the same identification semantics
as the identify command plus a nearest-candidates endpoint backed by an
HNSW index.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addMatchFlags(serveCmd)
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	model, met, threshold, err := resolveMatchConfig(cmd, cfg)
	if err != nil {
		return err
	}

	provider := embedding.NewClient(cfg.Embedding.URL, model)
	s, err := buildTemplateStore(ctx, mustGetString(cmd, "templates"), provider, true)
	if err != nil {
		return err
	}

	fmt.Println("Building in-memory HNSW index for candidate search...")
	ix, err := store.NewIndex(s, met)
	if err != nil {
		return fmt.Errorf("building candidate index: %w", err)
	}

	deps := &handlers.Deps{
		Config:    cfg,
		Store:     s,
		Index:     ix,
		Provider:  provider,
		Metric:    met,
		Threshold: threshold,
	}
	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(deps, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Faceprobe Web UI on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
