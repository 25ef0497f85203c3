package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/internal/config"
	"github.com/vistoriadocs/laudo/internal/housekeeping"
	"github.com/vistoriadocs/laudo/internal/httpserver"
	"github.com/vistoriadocs/laudo/internal/uploads"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := laudo.NewLogger(cfg.Logger.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, e.g. :5000")
	return cmd
}

// serve runs the HTTP server and the periodic sweep until ctx is done.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	genCfg := cfg.GeneratorConfig()
	genCfg.Logger = logger
	gen, err := laudo.NewGenerator(genCfg)
	if err != nil {
		return err
	}
	if err := gen.CheckTemplate(); err != nil {
		logger.Warn("template not available; generation will fail until it is installed", zap.Error(err))
	}

	store, err := uploads.NewStore(cfg.Paths.Uploads, cfg.UploadPolicy(), logger)
	if err != nil {
		return err
	}
	sweeper := housekeeping.NewSweeper(
		cfg.Housekeeping.Retention,
		[]string{cfg.Paths.Uploads, cfg.Paths.Output},
		housekeeping.WithLogger(logger),
	)

	handler, err := httpserver.New(httpserver.Options{
		Generator:       gen,
		Store:           store,
		Sweeper:         sweeper,
		RequiredFields:  cfg.Generation.RequiredFields,
		MaxRequestBytes: cfg.Uploads.MaxRequestBytes,
		SecretKey:       []byte(cfg.Server.SecretKey),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	var wg sync.WaitGroup
	if cfg.Housekeeping.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sweeper.Run(janitorCtx, cfg.Housekeeping.Interval); err != nil {
				logger.Error("housekeeping stopped", zap.Error(err))
			}
		}()
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	serveErr := make(chan error, 1)
	go func() {
		serverLogger.Info("laudo listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stopJanitor()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received; draining requests")
	stopJanitor()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
