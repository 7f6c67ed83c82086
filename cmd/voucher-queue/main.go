package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voucher-queue/internal/config"
	"voucher-queue/internal/database"
	httpapi "voucher-queue/internal/http"
	"voucher-queue/internal/logger"
	"voucher-queue/internal/notify"
	"voucher-queue/internal/report"
	"voucher-queue/internal/repository"
	"voucher-queue/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "voucher-queue")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting voucher-queue service")

	// 仓储层：优先使用 PostgreSQL，失败时回退到内存实现
	var (
		queueRepo   repository.QueueRepo
		patientRepo repository.PatientsRepo
		roomRepo    repository.RoomsRepo
		userRepo    repository.UsersRepo
	)
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("Database unavailable, falling back to in-memory repositories", zap.Error(err))
			queueRepo = repository.NewMemoryQueueRepo()
			patientRepo = repository.NewMemoryPatientsRepo()
			roomRepo = repository.NewMemoryRoomsRepo()
			userRepo = repository.NewMemoryUsersRepo()
		} else {
			defer db.Close()
			log.Info("Connected to PostgreSQL",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Database),
			)
			queueRepo = repository.NewPostgresQueueRepo(db)
			patientRepo = repository.NewPostgresPatientsRepo(db)
			roomRepo = repository.NewPostgresRoomsRepo(db)
			userRepo = repository.NewPostgresUsersRepo(db)
		}
	} else {
		log.Info("Database disabled, using in-memory repositories")
		queueRepo = repository.NewMemoryQueueRepo()
		patientRepo = repository.NewMemoryPatientsRepo()
		roomRepo = repository.NewMemoryRoomsRepo()
		userRepo = repository.NewMemoryUsersRepo()
	}

	// 通知层：WebSocket Hub 始终启用，Redis Streams / MQTT / Webhook 按配置
	hub := notify.NewHub(log)
	notifiers := []notify.Notifier{hub}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, stream notifications disabled", zap.Error(err))
		redisClient.Close()
	} else {
		defer redisClient.Close()
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		notifiers = append(notifiers, notify.NewStreamNotifier(redisClient))
	}
	pingCancel()

	if cfg.MQTT.Enabled {
		mqttNotifier, err := notify.NewMQTTNotifier(
			cfg.MQTT.Broker,
			cfg.MQTT.ClientID,
			cfg.MQTT.Username,
			cfg.MQTT.Password,
			cfg.MQTT.QoS,
		)
		if err != nil {
			log.Warn("MQTT unavailable, broker notifications disabled", zap.Error(err))
		} else {
			defer mqttNotifier.Close()
			log.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTT.Broker))
			notifiers = append(notifiers, mqttNotifier)
		}
	}

	if cfg.Webhook.URL != "" {
		log.Info("Webhook notifications enabled", zap.String("url", cfg.Webhook.URL))
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Webhook.URL))
	}

	notifier := notify.NewFanout(log, notifiers...)

	// 服务层
	queueSvc := service.NewQueueService(queueRepo, patientRepo, notifier, cfg.Queue.StrictStatus, log)
	patientSvc := service.NewPatientService(patientRepo, log)
	roomSvc := service.NewRoomService(roomRepo, log)
	authSvc := service.NewAuthService(userRepo, cfg.Auth.Secret, time.Duration(cfg.Auth.ExpiryHours)*time.Hour, log)
	exporter := report.NewExporter(queueSvc, log)

	// 初始管理员账号
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := authSvc.EnsureUser(seedCtx, "admin", "admin123", "Admin"); err != nil {
		log.Warn("Failed to seed admin user", zap.Error(err))
	}
	seedCancel()

	// HTTP 层
	authHandler := httpapi.NewAuthHandler(authSvc, log)
	queueHandler := httpapi.NewQueueHandler(queueSvc, patientSvc, roomSvc, exporter, authHandler, log)
	patientHandler := httpapi.NewPatientHandler(patientSvc, authHandler, log)
	roomHandler := httpapi.NewRoomHandler(roomSvc, authHandler, log)

	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(authHandler)
	router.RegisterQueueRoutes(queueHandler)
	router.RegisterPatientRoutes(patientHandler)
	router.RegisterRoomRoutes(roomHandler)
	router.RegisterWebSocket(hub.HandleWS)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	log.Info("voucher-queue service stopped")
}
