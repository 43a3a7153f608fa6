// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"job-matcher/internal/app"
	awsclient "job-matcher/internal/common/aws"
	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/config"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/notify"

	// Matching workers (3)
	cm "job-matcher/internal/workers/matching/compute-match"
	dm "job-matcher/internal/workers/matching/decide-match"
	rjm "job-matcher/internal/workers/matching/rank-job-matches"

	// Pipeline workers (5)
	ca "job-matcher/internal/workers/pipeline/create-application"
	gah "job-matcher/internal/workers/pipeline/get-application-history"
	ls "job-matcher/internal/workers/pipeline/list-stages"
	ma "job-matcher/internal/workers/pipeline/move-application"
	ms "job-matcher/internal/workers/pipeline/mutate-stages"

	// Communication workers (1)
	sn "job-matcher/internal/workers/communication/send-notification"
)

func main() {
	zapLog := logger.New("info", "json")
	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := cfg.ValidateBroker(); err != nil {
		zapLog.Fatal("invalid configuration", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.TraceSampleRatio, log)
	defer obs.Shutdown(context.Background())

	a, err := app.New(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Fatal("failed to initialise stores", zap.Error(err))
	}
	defer a.Close()

	zeebe, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	sender := newNotificationSender(ctx, cfg, a, log, obs)
	workers := startWorkers(zeebe.GetClient(), cfg, a, sender, log, obs)

	relay := notify.NewRelay(a.Redis, cfg.Notifications, sender.Deliver, log)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx); err != nil {
			log.Error("notification relay stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	zapLog.Info("worker manager started", zap.Int("workers", len(workers)))

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	<-relayDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("worker manager stopped")
}

func newNotificationSender(ctx context.Context, cfg *config.Config, a *app.App, log logger.Logger, obs *observability.Observability) *sn.Handler {
	var (
		email awsclient.EmailSender
		sms   awsclient.SMSSender
	)
	region := cfg.Notifications.AWS.Region

	if cfg.Notifications.Email.Enabled {
		client, err := awsclient.NewSESClient(ctx, region)
		if err != nil {
			log.Warn("SES unavailable, email disabled", map[string]interface{}{"error": err.Error()})
		} else {
			email = client
		}
	}
	if cfg.Notifications.SMS.Enabled {
		client, err := awsclient.NewSNSClient(ctx, region)
		if err != nil {
			log.Warn("SNS unavailable, SMS disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sms = client
		}
	}
	return sn.NewHandler(sn.LoadConfig(cfg), a.DB, email, sms, log, obs)
}

func startWorkers(client zbc.Client, cfg *config.Config, a *app.App, sender *sn.Handler, log logger.Logger, obs *observability.Observability) []worker.JobWorker {
	handlers := []struct {
		taskType string
		handle   worker.JobHandler
	}{
		{cm.TaskType, cm.NewHandler(cm.LoadConfig(cfg), a.Matching, log, obs).Handle},
		{dm.TaskType, dm.NewHandler(dm.LoadConfig(cfg), a.Matching, log, obs).Handle},
		{rjm.TaskType, rjm.NewHandler(rjm.LoadConfig(cfg), a.Matching, log, obs).Handle},

		{ls.TaskType, ls.NewHandler(ls.LoadConfig(cfg), a.Pipeline, log, obs).Handle},
		{ms.TaskType, ms.NewHandler(ms.LoadConfig(cfg), a.Pipeline, log, obs).Handle},
		{ca.TaskType, ca.NewHandler(ca.LoadConfig(cfg), a.Pipeline, log, obs).Handle},
		{ma.TaskType, ma.NewHandler(ma.LoadConfig(cfg), a.Pipeline, log, obs).Handle},
		{gah.TaskType, gah.NewHandler(gah.LoadConfig(cfg), a.Pipeline, log, obs).Handle},

		{sn.TaskType, sender.Handle},
	}

	var workers []worker.JobWorker
	for _, h := range handlers {
		if w := camunda.StartWorker(client, h.taskType, config.GetWorkerConfig(cfg, h.taskType), h.handle, log); w != nil {
			workers = append(workers, w)
		}
	}
	return workers
}

func newMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Ready(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
