package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sensoralert/internal/audit"
	"sensoralert/internal/config"
	"sensoralert/internal/cooldown"
	"sensoralert/internal/dispatch"
	"sensoralert/internal/engine"
	enginehttp "sensoralert/internal/engine/interfaces/http"
	ledgerapp "sensoralert/internal/ledger/application"
	alertrepo "sensoralert/internal/ledger/infrastructure/postgres"
	ledgerhttp "sensoralert/internal/ledger/interfaces/http"
	"sensoralert/internal/observability/metrics"
	provisioning "sensoralert/internal/provisioning/application"
	provisioninghttp "sensoralert/internal/provisioning/interfaces/http"
	readingrepo "sensoralert/internal/readings/infrastructure/postgres"
	"sensoralert/internal/realtime"
	recipientapp "sensoralert/internal/recipients/application"
	recipientrepo "sensoralert/internal/recipients/infrastructure/postgres"
	thresholdapp "sensoralert/internal/thresholds/application"
	thresholdrepo "sensoralert/internal/thresholds/infrastructure/postgres"
	thresholdhttp "sensoralert/internal/thresholds/interfaces/http"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	configRepo := thresholdrepo.NewConfigRepository(db)
	store, err := thresholdapp.NewStore(configRepo, logger, thresholdapp.WithAuditor(auditRepo))
	if err != nil {
		logger.Fatal("threshold store error", zap.Error(err))
	}

	recipientRepo := recipientrepo.NewRecipientRepository(db)
	resolver, err := recipientapp.NewResolver(recipientRepo, store, logger)
	if err != nil {
		logger.Fatal("recipient resolver error", zap.Error(err))
	}

	alertRepo, err := alertrepo.NewAlertRepository(db)
	if err != nil {
		logger.Fatal("alert repository error", zap.Error(err))
	}
	ledgerService, err := ledgerapp.NewLedger(alertRepo, logger, ledgerapp.WithDedupWindow(cfg.CooldownWindow))
	if err != nil {
		logger.Fatal("alert ledger error", zap.Error(err))
	}

	var cooldowns cooldown.Manager
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Fatal("redis ping error", zap.Error(err))
		}
		defer redisClient.Close()
		cooldowns, err = cooldown.NewRedisManager(redisClient, cfg.CooldownWindow)
		if err != nil {
			logger.Fatal("cooldown manager error", zap.Error(err))
		}
	} else {
		cooldowns = cooldown.NewMemoryManager(cfg.CooldownWindow)
		logger.Warn("REDIS_ADDR not set, cooldown windows are process-local")
	}

	broker := realtime.NewBroker()

	var emailSender dispatch.EmailSender
	if cfg.EmailWebhookURL != "" {
		sender, err := dispatch.NewWebhookEmailSender(cfg.EmailWebhookURL)
		if err != nil {
			logger.Fatal("email sender error", zap.Error(err))
		}
		emailSender = sender
	}
	var smsSender dispatch.SMSSender
	if cfg.SMSWebhookURL != "" {
		sender, err := dispatch.NewWebhookSMSSender(cfg.SMSWebhookURL)
		if err != nil {
			logger.Fatal("sms sender error", zap.Error(err))
		}
		smsSender = sender
	}

	dispatcher, err := dispatch.NewDispatcher(ledgerService, emailSender, smsSender, broker, logger,
		dispatch.WithMaxAttempts(cfg.DispatchRetries))
	if err != nil {
		logger.Fatal("dispatcher error", zap.Error(err))
	}

	readingRepo := readingrepo.NewReadingRepository(db)
	eng, err := engine.New(readingRepo, store, cooldowns, ledgerService, resolver, dispatcher, logger,
		engine.WithDispatchTimeout(cfg.DispatchTimeout))
	if err != nil {
		logger.Fatal("engine error", zap.Error(err))
	}

	provisionOpts := []provisioning.Option{provisioning.WithAuditor(auditRepo)}
	if len(cfg.Templates) > 0 {
		provisionOpts = append(provisionOpts, provisioning.WithTemplates(cfg.Templates))
	}
	provisionService, err := provisioning.NewService(db, logger, provisionOpts...)
	if err != nil {
		logger.Fatal("provisioning service error", zap.Error(err))
	}

	ingestHandler, err := enginehttp.NewIngestHandler(eng, logger)
	if err != nil {
		logger.Fatal("ingest handler error", zap.Error(err))
	}
	thresholdHandler, err := thresholdhttp.NewHandler(store)
	if err != nil {
		logger.Fatal("threshold handler error", zap.Error(err))
	}
	alertHandler, err := ledgerhttp.NewHandler(ledgerService)
	if err != nil {
		logger.Fatal("alert handler error", zap.Error(err))
	}
	provisionHandler, err := provisioninghttp.NewHandler(provisionService)
	if err != nil {
		logger.Fatal("provisioning handler error", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestHandler)
	mux.Handle("/api/v1/sensors/", thresholdHandler)
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/api/v1/alerts/stream", realtime.NewStreamHandler(broker))
	mux.Handle("/api/v1/provisioning/sensors", provisionHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	eng.Close()
	logger.Info("shutdown complete")
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
