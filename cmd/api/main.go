package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contractorvet/internal/app"
	"contractorvet/internal/handler"
	"contractorvet/internal/httpserver"
	"contractorvet/internal/repository"
	"contractorvet/internal/service/achievement"
	"contractorvet/internal/service/activity"
	"contractorvet/internal/service/dashboard"
	"contractorvet/internal/service/notification"
	"contractorvet/internal/service/project"
	"contractorvet/internal/service/recorder"
	"contractorvet/internal/service/referral"
	"contractorvet/internal/service/review"
	"contractorvet/pkg/circuitbreaker"
	"contractorvet/pkg/db"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/mq"
	"contractorvet/pkg/otel"
	redisclient "contractorvet/pkg/redis"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	log.Info("Starting contractorvet api...",
		zap.String("version", app.Version),
		zap.String("db_host", cfg.DB.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("inline_side_effects", cfg.Worker.Inline),
	)

	shutdownOtel, err := otel.Init(cfg.Otel, app.Version, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
		shutdownOtel = func() {}
	}
	defer shutdownOtel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis 只用于就绪探测；去重在 worker 里
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ Publisher；连不上时副作用退化为进程内执行
	var publisher *mq.Publisher
	if !cfg.Worker.Inline {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, "contractorvet-api")
		if err != nil {
			log.Warn("MQ publisher unavailable, side effects run in-process", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// Repositories
	projectRepo := repository.NewProjectRepository(dbConn, log)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, log)
	metricRepo := repository.NewMetricRepository(dbConn, log)
	activityRepo := repository.NewActivityRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	achievementRepo := repository.NewAchievementRepository(dbConn, log)
	reviewRepo := repository.NewReviewRepository(dbConn, log)
	referralRepo := repository.NewReferralRepository(dbConn, log)

	// Side effects
	rec := recorder.New(metricRepo, log)
	evaluator := achievement.NewEvaluator(achievementRepo, notificationRepo, rec, log)
	effects := activity.NewEffects(rec, evaluator)

	var pub activity.Publisher
	if publisher != nil {
		pub = publisher
	}
	dispatcher := activity.NewDispatcher(pub, circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()), effects, log)
	tracker := activity.NewTracker(activityRepo, dispatcher, log)

	// Services
	aggregator := dashboard.NewAggregator(dashboard.Readers{
		Projects:      projectRepo,
		Metrics:       metricRepo,
		Activities:    activityRepo,
		Notifications: notificationRepo,
		Achievements:  achievementRepo,
		Reviews:       reviewRepo,
		Referrals:     referralRepo,
	}, dashboard.Options{
		MetricsWindow: time.Duration(cfg.Dashboard.MetricsWindowDays) * 24 * time.Hour,
		ActivityLimit: cfg.Dashboard.ActivityLimit,
	}, log)
	referrals := referral.NewProcessor(referralRepo, notificationRepo, tracker, referral.Reward{
		Amount: cfg.Referral.RewardAmount,
		Type:   cfg.Referral.RewardType,
		Expiry: cfg.Referral.Expiry(),
	}, log)
	projects := project.NewService(projectRepo, milestoneRepo, activityRepo, tracker, log)
	reviews := review.NewService(reviewRepo, tracker, log)
	notifications := notification.NewService(notificationRepo)

	// Router
	readiness := []httpserver.ReadinessCheck{
		{Name: "db", Check: dbConn.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisclient.Ping(ctx, rdb) }},
	}
	if publisher != nil {
		readiness = append(readiness, httpserver.ReadinessCheck{Name: "mq", Check: func(context.Context) error {
			if !publisher.IsConnected() {
				return mq.ErrNotConnected
			}
			return nil
		}})
	}

	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	router := httpserver.NewRouter(httpserver.Handlers{
		Dashboard:    handler.NewDashboardHandler(aggregator, log),
		Activity:     handler.NewActivityHandler(tracker, log),
		Referral:     handler.NewReferralHandler(referrals, log),
		Project:      handler.NewProjectHandler(projects, log),
		Review:       handler.NewReviewHandler(reviews, log),
		Notification: handler.NewNotificationHandler(notifications, log),
	}, httpserver.Options{
		JWTSecret:   cfg.JWT.Secret,
		AllowOrigin: cfg.CORS.AllowOrigin,
		ServiceName: serviceName,
		Readiness:   readiness,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 等进程内的副作用跑完再关连接
	log.Info("Waiting for in-flight side effects...")
	dispatcher.Wait()

	log.Info("api shutdown complete")
}
