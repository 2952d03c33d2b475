package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albri/mdplane/internal/api"
	"github.com/albri/mdplane/internal/auth"
	"github.com/albri/mdplane/internal/config"
	"github.com/albri/mdplane/internal/content"
	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/jobs"
	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/metrics"
	"github.com/albri/mdplane/internal/quota"
	"github.com/albri/mdplane/internal/ratelimit"
	"github.com/albri/mdplane/internal/store/kv"
	"github.com/albri/mdplane/internal/store/sql"
	"github.com/albri/mdplane/internal/webhook"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mdplaned HTTP server",
	Long: `Start the mdplaned server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/mdplane/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	m := metrics.New()

	sqlStore, err := sql.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlStore.Close()

	kvStore, err := kv.Open(cfg.KV)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	defer kvStore.Close()

	contentStore, err := content.New(ctx, cfg.Content, kvStore.DB())
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}

	sessions, err := auth.NewSessionService(auth.SessionConfig{
		Secret: cfg.Auth.JWTSigningKey,
		Issuer: "mdplane",
		TTL:    cfg.Auth.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("init session service: %w", err)
	}

	resolver := credential.NewResolver(sqlStore, sqlStore, sessions)
	rateLimits := ratelimit.NewRegistry()
	quotaEnforcer := quota.NewEnforcer(kvStore, cfg.Quota.DefaultBytes)

	var allowHosts []string
	if cfg.Webhooks.AllowPrivateNets {
		allowHosts = []string{"localhost"}
	}
	webhookPolicy := webhook.NewPolicy(allowHosts...)

	dispatcher := webhook.NewDispatcher(sqlStore, webhookPolicy)
	runner := jobs.NewRunner(sqlStore, kvStore, dispatcher, m, jobs.Config{
		GaugeInterval: cfg.Orchestration.SweepInterval,
	})
	runner.Start(ctx, cfg.Webhooks.DeliveryTimeout)

	apiServer := api.New(api.Deps{
		KV:            kvStore,
		SQL:           sqlStore,
		Resolver:      resolver,
		Sessions:      sessions,
		RateLimits:    rateLimits,
		Quota:         quotaEnforcer,
		WebhookPolicy: webhookPolicy,
		Content:       contentStore,
		Metrics:       m,
		Config:        cfg,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: metrics.Handler(),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics server listening", "address", cfg.Metrics.Address)
	}

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("mdplaned listening", "address", cfg.HTTP.Address)
		err := httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		serverDone <- err
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining in-flight requests")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		<-serverDone
		logger.Info("mdplaned stopped")
	case err := <-serverDone:
		signal.Stop(sigChan)
		cancel()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("mdplaned stopped")
	}

	return nil
}
