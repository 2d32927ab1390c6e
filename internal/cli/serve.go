package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"veristream/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification server",
	Long: `Serve starts the HTTP control surface and WebSocket streaming surface.

Sessions are created with POST /sessions {"content_id": "..."}, polled
with GET /sessions/{id}, cancelled with DELETE /sessions/{id}, and
streamed from /ws/{id} (use ?from_seq=N to resume after a disconnect).

Example:
  veristream serve
  veristream serve --addr 0.0.0.0:9090
  VERISTREAM_TRANSCRIPT_BASE_URL=https://captions.internal/{id} veristream serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log := buildLogger()
	mgr, err := buildManager(cfg, nil, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, mgr, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
