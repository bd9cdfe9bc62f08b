package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/alert"
	"github.com/stayflow/opsdash/internal/api"
	"github.com/stayflow/opsdash/internal/metrics"
	"github.com/stayflow/opsdash/internal/model"
	"github.com/stayflow/opsdash/internal/monitor"
	"github.com/stayflow/opsdash/internal/notify"
	"github.com/stayflow/opsdash/internal/probe"
	"github.com/stayflow/opsdash/internal/sla"
	"github.com/stayflow/opsdash/internal/storage"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("monitor.interval", 60*time.Second)
	viper.SetDefault("monitor.retention", 720*time.Hour)
	viper.SetDefault("probe.timeout", 10*time.Second)
	viper.SetDefault("archive.path", "opsdash.db")
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatal("Failed to read config file", zap.Error(err))
	}

	var targets []model.Target
	if err := viper.UnmarshalKey("targets", &targets); err != nil {
		logger.Fatal("Failed to parse targets", zap.Error(err))
	}
	if len(targets) == 0 {
		logger.Fatal("No monitoring targets configured")
	}

	thresholdCfg := model.DefaultThresholds()
	if viper.IsSet("thresholds") {
		if err := viper.UnmarshalKey("thresholds", &thresholdCfg); err != nil {
			logger.Fatal("Failed to parse thresholds", zap.Error(err))
		}
	}

	// State containers
	tracker := sla.NewTracker(logger, sla.TrackerConfig{
		SampleCapacity: viper.GetInt("monitor.sample_capacity"),
		MaxIncidents:   viper.GetInt("monitor.max_incidents"),
	})
	thresholds := alert.NewThresholdStore(thresholdCfg)
	ledger := alert.NewLedger(viper.GetInt("monitor.max_alert_history"))

	// Best-effort persistence
	archive, err := storage.NewSQLiteArchive(logger, viper.GetString("archive.path"))
	if err != nil {
		logger.Fatal("Failed to open archive", zap.Error(err))
	}
	defer archive.Close()

	// Probe providers
	probers := map[model.TargetKind]probe.Prober{
		model.TargetKindHTTP: probe.NewHTTPProber(logger, viper.GetDuration("probe.timeout")),
	}
	if hasTargetKind(targets, model.TargetKindContainer) {
		dockerProber, err := probe.NewDockerProber(logger)
		if err != nil {
			logger.Fatal("Failed to create docker prober", zap.Error(err))
		}
		defer dockerProber.Close()
		probers[model.TargetKindContainer] = dockerProber
	}

	// Notification channels
	notifier := notify.NewMulti(logger)
	if viper.IsSet("nats.urls") {
		nc := connectNATS(logger)
		defer nc.Close()

		js, err := nc.JetStream()
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}
		natsNotifier, err := notify.NewNATSNotifier(logger, js)
		if err != nil {
			logger.Fatal("Failed to create NATS notifier", zap.Error(err))
		}
		notifier.Add("nats", natsNotifier)
	}
	if viper.IsSet("email.host") {
		var emailCfg notify.EmailConfig
		if err := viper.UnmarshalKey("email", &emailCfg); err != nil {
			logger.Fatal("Failed to parse email config", zap.Error(err))
		}
		notifier.Add("email", notify.NewEmailNotifier(logger, emailCfg))
	}

	// Metric sources
	system := metrics.NewSystemCollector(logger, 30*time.Second)
	var business alert.BusinessMetrics
	if viper.IsSet("business.base_url") {
		business = metrics.NewHTTPBusinessSource(logger,
			viper.GetString("business.base_url"),
			viper.GetDuration("probe.timeout"))
	}

	evaluator := alert.NewEvaluator(logger, tracker, thresholds, ledger, business, system, notifier)

	mon := monitor.New(logger, monitor.Config{
		Interval:  viper.GetDuration("monitor.interval"),
		Retention: viper.GetDuration("monitor.retention"),
		Targets:   targets,
	}, probers, tracker, evaluator, ledger, archive)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := mon.Start(ctx); err != nil {
		logger.Fatal("Failed to start monitor", zap.Error(err))
	}

	// HTTP API
	apiServer := api.NewServer(logger, tracker, evaluator, ledger, thresholds)
	httpServer := &http.Server{
		Addr:         viper.GetString("server.addr"),
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP API listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	mon.Stop()

	logger.Info("Server shutting down gracefully")
}

func hasTargetKind(targets []model.Target, kind model.TargetKind) bool {
	for _, t := range targets {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

// connectNATS connects with retry and standard handlers.
func connectNATS(logger *zap.Logger) *nats.Conn {
	opts := []nats.Option{
		nats.Name(viper.GetString("app.name")),
		nats.MaxReconnects(viper.GetInt("nats.max_reconnects")),
		nats.ReconnectWait(viper.GetDuration("nats.reconnect_wait")),
		nats.Timeout(viper.GetDuration("nats.connect_timeout")),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var nc *nats.Conn
	var err error
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(viper.GetString("nats.urls.0"), opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}

	logger.Info("Connected to NATS successfully", zap.String("url", nc.ConnectedUrl()))
	return nc
}
