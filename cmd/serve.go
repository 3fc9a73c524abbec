package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	cfgpkg "github.com/KaramelBytes/tabletalk/internal/config"
	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/KaramelBytes/tabletalk/internal/web"
	"github.com/KaramelBytes/tabletalk/internal/worker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser UI (Query CSV and Graph Visualization tabs)",
	Example: `  tabletalk serve
  tabletalk serve --addr 0.0.0.0:8080 --dataset ./Housing.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		log := currentLogger()

		if c.SentryDSN != "" {
			if err := logging.InitSentry(c.SentryDSN, version); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: error reporting disabled: %v\n", err)
			}
			defer logging.Flush(2 * time.Second)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pool := worker.New(c.Workers, log)
		defer pool.Close()

		svc, err := buildServices(ctx, c, pool)
		if err != nil {
			return err
		}
		checkModel(ctx, c)

		h := web.NewHandler(svc.qa, svc.plots, svc.loader, web.Options{
			PlotColumns: c.PlotColumns,
			Model:       c.Model,
			DatasetPath: c.DatasetPath,
		}, log)
		srv := web.NewServer(c.ListenAddr, h.Routes(), log)

		ln, err := net.Listen("tcp", c.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", c.ListenAddr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on http://%s (model=%s, dataset=%s)\n", ln.Addr(), c.Model, c.DatasetPath)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Serve(ln) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

// checkModel warns when the configured Ollama model is missing or the runtime is down.
// It never fails startup: the UI reports the same problem per question.
func checkModel(ctx context.Context, c *cfgpkg.Global) {
	if c.Provider != ai.ProviderOllama {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ok, err := ai.NewOllamaClient(c.OllamaHost, 3*time.Second, 0, 0, 0).HasModel(ctx, c.Model)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "⚠ Warning: Ollama not reachable at %s: %v\n", c.OllamaHost, err)
	case !ok:
		fmt.Fprintf(os.Stderr, "⚠ Warning: model %s is not installed. Install it with 'ollama pull %s'\n", c.Model, c.Model)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
