package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagwing/birdtag/internal/config"
	"github.com/tagwing/birdtag/internal/notify"
	"github.com/tagwing/birdtag/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the BirdTag web server.
The server exposes tag search, tag mutation, media deletion, upload
presigning and notification subscriptions over a JSON API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

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

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		return err
	}

	detector, err := buildDetector(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Using %s species detector\n", detector.Name())

	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(host, port, web.Deps{
		Store:    store,
		Blobs:    blobs,
		Detector: detector,
		Notifier: notify.NewNotifier(notify.NewWebhookSender()),
	})

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

	fmt.Printf("Starting BirdTag API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
