package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Siddhant-K-code/minelab/pkg/server"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the minelab HTTP API.

Clustering, sweep, mining and projection requests are JSON POSTs under /v1.
POST /v1/kmeans/sweep streams progress as server-sent events when the client
sends Accept: text/event-stream. Prometheus metrics are served on /metrics.

Settings come from the server, auth, cache and history sections of
minelab.yaml; the flags below override them.

Example:
  minelab api --port 8080
  MINELAB_AUTH_API_KEYS=key1,key2 minelab api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	apiCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	apiCmd.Flags().String("api-keys", "", "Comma-separated list of valid API keys (or use MINELAB_AUTH_API_KEYS)")
	apiCmd.Flags().Int("rate-limit", 0, "Requests per minute per client IP, 0 keeps the config value")

	_ = viper.BindPFlag("server.port", apiCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", apiCmd.Flags().Lookup("host"))
}

func runAPI(cmd *cobra.Command, args []string) error {
	apiKeysStr, _ := cmd.Flags().GetString("api-keys")
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiKeysStr != "" {
		cfg.Auth.APIKeys = strings.Split(apiKeysStr, ",")
	}
	if rateLimit > 0 {
		cfg.Server.RateLimit = rateLimit
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{host: "api", metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.svc, server.ConfigFrom(cfg), a.metrics, a.tracer)
	addr := server.ConfigFrom(cfg).Addr()

	fmt.Printf("minelab API server starting on %s\n", addr)
	fmt.Printf("  Auth: %v\n", srv.HasAuth())
	fmt.Printf("  Cache: %v, History: %v\n", cfg.Cache.Enabled, cfg.History.Enabled)
	if cfg.Source.Backend != "" {
		fmt.Printf("  Source: %s\n", cfg.Source.Backend)
	}
	fmt.Println()
	fmt.Println("Endpoints:")
	for _, e := range server.Endpoints() {
		fmt.Printf("  %s\n", e)
	}
	fmt.Println()

	if err := srv.Run(ctx); err != nil {
		return err
	}

	fmt.Println("Server stopped")
	return nil
}
