package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/ai"
	"github.com/oncohub/oncohub/internal/config"
	"github.com/oncohub/oncohub/internal/events"
	v1 "github.com/oncohub/oncohub/internal/handler/v1"
	"github.com/oncohub/oncohub/internal/repository/postgres"
	"github.com/oncohub/oncohub/internal/service"
	"github.com/oncohub/oncohub/pkg/auth"
	"github.com/oncohub/oncohub/pkg/database"
	"github.com/oncohub/oncohub/pkg/logger"
	"github.com/oncohub/oncohub/pkg/metrics"
	"github.com/oncohub/oncohub/pkg/tracer"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector(cfg.App.Name)
	if err := database.Instrument(db, collector); err != nil {
		return err
	}
	jwtManager := auth.NewJWTManager(cfg.JWT)

	publisher, err := events.NewPublisher(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", zap.Error(err))
		}
	}()

	userRepo := postgres.NewUserRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	doctorRepo := postgres.NewDoctorRepo(db)
	requestRepo := postgres.NewRequestRepo(db)
	caseRepo := postgres.NewCaseFileRepo(db)

	auditSvc := service.NewAuditService(auditRepo, log, collector)
	defer auditSvc.Shutdown()

	authSvc := service.NewAuthService(userRepo, jwtManager, cfg.JWT.Issuer, log)
	patientSvc := service.NewPatientService(patientRepo, requestRepo, userRepo, auditSvc, log)
	doctorSvc := service.NewDoctorService(doctorRepo, userRepo, auditSvc, log)
	requestSvc := service.NewRequestService(requestRepo, publisher, auditSvc, collector, log)
	caseSvc := service.NewCaseService(caseRepo, requestRepo, auditSvc, collector, cfg.Upload.MaxFileSizeBytes, log)
	riskSvc := service.NewRiskService(caseRepo, requestRepo, auditSvc, collector, log)

	aiClient := ai.NewClient(cfg.AI, collector, log)
	aiSvc := service.NewAIService(aiClient, patientRepo, caseRepo, requestRepo, auditSvc, collector, log)

	router := v1.NewRouter(v1.RouterDeps{
		Config:     cfg,
		DB:         db,
		JWTManager: jwtManager,
		Collector:  collector,
		Log:        log,

		Auth:    v1.NewAuthHandler(authSvc),
		Patient: v1.NewPatientHandler(patientSvc),
		Doctor:  v1.NewDoctorHandler(doctorSvc),
		Request: v1.NewRequestHandler(requestSvc),
		Risk:    v1.NewRiskHandler(riskSvc),
		Case:    v1.NewCaseHandler(caseSvc),
		AI:      v1.NewAIHandler(aiSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
