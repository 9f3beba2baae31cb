package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/dashboard"
	"github.com/KaramelBytes/churnlens/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	srvAddr string
	srvData string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the churn dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		addr, path := c.ListenAddr, c.OutputPath
		if cmd.Flags().Changed("addr") && srvAddr != "" {
			addr = srvAddr
		}
		if cmd.Flags().Changed("data") && srvData != "" {
			path = srvData
		}

		s, err := analysis.Load(path, analysis.Options{PreviewRows: c.PreviewRows})
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		server, err := dashboard.NewServer(s, reg)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(addr)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard for %s at http://%s\n", s.Name, addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().StringVarP(&srvData, "data", "d", "", "enriched CSV (overrides config output_path)")
}
