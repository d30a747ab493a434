package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/catalog"
	"github.com/svrddd/tgbotNEW/internal/engine"
	"github.com/svrddd/tgbotNEW/internal/httpapi"
	"github.com/svrddd/tgbotNEW/internal/notify"
	"github.com/svrddd/tgbotNEW/internal/orders"
	"github.com/svrddd/tgbotNEW/internal/reviews"
	"github.com/svrddd/tgbotNEW/internal/session"
	"github.com/svrddd/tgbotNEW/internal/storage"
	"github.com/svrddd/tgbotNEW/internal/users"
)

type Config struct {
	HTTPPort        string
	DBPath          string
	MigrationsPath  string
	RedisAddr       string
	KafkaBrokers    []string
	AdminIDs        []int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AppEnv          string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "coffee_shop.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		AdminIDs:        parseAdminIDs(os.Getenv("ADMIN_IDS")),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AppEnv:          getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAdminIDs(value string) []int64 {
	var ids []int64
	for _, part := range splitList(value) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	if err := storage.RunMigrations(db, cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancelPing()
	defer redisClient.Close()

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 && len(cfg.AdminIDs) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.AdminIDs, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		logger.Warn("kafka brokers or admin ids not configured, admin notifications go to the log only",
			zap.Strings("brokers", cfg.KafkaBrokers), zap.Int("admins", len(cfg.AdminIDs)))
		notifier = notify.NewLogNotifier(logger)
	}

	catalogSvc := catalog.NewService(
		catalog.NewRepository(db),
		catalog.NewRedisCache(redisClient),
		logger,
	)
	orderRepo := orders.NewRepository(db)

	eng := engine.NewEngine(
		session.NewMemoryStore(),
		catalogSvc,
		orderRepo,
		users.NewRepository(db),
		reviews.NewRepository(db),
		notifier,
		logger,
	)

	router := httpapi.NewRouter(
		httpapi.NewEventsHandler(eng, logger, cfg.RequestTimeout),
		httpapi.NewOrdersHandler(orderRepo, logger, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
