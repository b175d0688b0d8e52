package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ceasar-x/sschool/config"
	"github.com/Ceasar-x/sschool/handlers"
	"github.com/Ceasar-x/sschool/logger"
	"github.com/Ceasar-x/sschool/metrics"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load()

	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	config.LogEnv(log)

	ctx := context.Background()
	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	db, err := store.NewMongoDB(connectCtx, cfg.MongoURI, cfg.DBName)
	if err == nil {
		err = db.EnsureIndexes(connectCtx)
	}
	cancelConnect()
	if err != nil {
		log.Error("mongodb", "error", err)
		os.Exit(1)
	}

	hasher, err := service.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("bcrypt", "error", err)
		os.Exit(1)
	}
	tokens := service.NewTokenIssuer(cfg.JWTSecret)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var sender service.Sender = service.LogSender{}
	if cfg.MailEnabled() {
		sender = service.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Warn("SMTP_HOST not set; account emails are logged instead of sent")
	}
	mailer := service.NewMailer(sender, db, collector, service.MailerOptions{
		QueueSize: cfg.MailQueueSize,
		Workers:   cfg.MailWorkers,
	})
	mailer.Start()

	deps := &handlers.RouterDeps{
		Users:          db,
		Books:          db,
		Materials:      db,
		EmailLogs:      db,
		Hasher:         hasher,
		Tokens:         tokens,
		Notifier:       mailer,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		Logger:         log,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Metrics:        collector,
		Gatherer:       reg,
	}
	if cfg.StorageEnabled() {
		s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Error("s3", "error", err)
			os.Exit(1)
		}
		deps.Storage = s3Service
	} else {
		log.Warn("AWS_S3_BUCKET not set; book cover uploads are disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	if err := mailer.Close(shutdownCtx); err != nil {
		log.Error("mailer drain", "error", err)
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Error("mongodb disconnect", "error", err)
	}
}
