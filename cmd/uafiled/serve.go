package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-opcua/addrspace"
	"github.com/arloliu/go-opcua/config"
	"github.com/arloliu/go-opcua/filetransfer"
	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Install the configured files and serve metrics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print it with defaults applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()

			return enc.Encode(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	return cmd
}

// server holds the running components of the daemon.
type server struct {
	cfg      *config.Config
	logger   logger.Logger
	as       *addrspace.AddressSpace
	manager  *filetransfer.Manager
	registry *prometheus.Registry
}

func newServer(ctx context.Context, cfg *config.Config, l logger.Logger, newS3 config.S3ClientFactory) (*server, error) {
	as, err := addrspace.New(addrspace.WithLogger(l))
	if err != nil {
		return nil, err
	}

	mgr, err := filetransfer.NewManager(as, filetransfer.WithLogger(l))
	if err != nil {
		return nil, err
	}

	fs, err := config.NewFilesystem(cfg.FileTransfer.Filesystem)
	if err != nil {
		return nil, err
	}

	files, err := config.InstallFiles(ctx, cfg.FileTransfer, as, mgr, fs, newS3)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		l.Info("file installed", "node", f.Object().NodeID().String(), "path", f.Filename(), "size", f.FileSize())
	}

	reg := prometheus.NewRegistry()
	if err := metrics.RegisterFileTransfer(reg, mgr.Metrics()); err != nil {
		return nil, err
	}

	return &server{cfg: cfg, logger: l, as: as, manager: mgr, registry: reg}, nil
}

// run serves the metrics endpoint, when enabled, until ctx is done.
func (s *server) run(ctx context.Context) error {
	if !s.cfg.Metrics.Enabled {
		s.logger.Info("metrics disabled, waiting for shutdown signal")
		<-ctx.Done()

		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Metrics.Path, metrics.Handler(s.registry))

	httpServer := &http.Server{
		Addr:              s.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", "addr", s.cfg.Metrics.Listen, "path", s.cfg.Metrics.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, stopping metrics server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	l, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.SetLogger(l)

	srv, err := newServer(ctx, cfg, l, nil)
	if err != nil {
		l.Error("failed to start", "error", err)
		return err
	}

	return srv.run(ctx)
}
