package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqcontracts "contractorvet/contracts/mq"
	"contractorvet/internal/app"
	"contractorvet/internal/mqhandler"
	"contractorvet/internal/repository"
	"contractorvet/internal/service/achievement"
	"contractorvet/internal/service/activity"
	"contractorvet/internal/service/recorder"
	"contractorvet/pkg/db"
	"contractorvet/pkg/dedup"
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

	log.Info("Starting contractorvet worker...",
		zap.String("version", app.Version),
		zap.String("queue", cfg.Worker.Queue),
		zap.String("routing_key", mqcontracts.RoutingKeyActivityRecorded),
	)

	shutdownOtel, err := otel.Init(cfg.Otel, app.Version, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
		shutdownOtel = func() {}
	}
	defer shutdownOtel()

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	metricRepo := repository.NewMetricRepository(dbConn, log)
	achievementRepo := repository.NewAchievementRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	rec := recorder.New(metricRepo, log)
	evaluator := achievement.NewEvaluator(achievementRepo, notificationRepo, rec, log)
	effects := activity.NewEffects(rec, evaluator)

	deduper := dedup.NewDeduper(rdb, cfg.Worker.DedupTTLDuration(), log)
	h := mqhandler.NewActivityRecordedHandler(effects, deduper, log)

	// 处理失败的消息转发到 DLQ
	dlq, err := mq.NewPublisher(cfg.MQ.URL, "contractorvet-worker-dlq")
	if err != nil {
		log.Fatal("Failed to init DLQ publisher", zap.Error(err))
	}
	defer dlq.Close()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, "contractorvet-worker", cfg.Worker.Queue, mqcontracts.RoutingKeyActivityRecorded, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(h.Handle)
	consumer.SetDeadLetter(dlq)

	go func() {
		log.Info("Starting activity.recorded consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Activity consumer failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")
	consumer.Stop()
	log.Info("worker shutdown complete")
}
