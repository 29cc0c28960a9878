package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/photomarket/internal/api"
	"github.com/honeynil/photomarket/internal/config"
	"github.com/honeynil/photomarket/internal/infrastructure/kafka"
	"github.com/honeynil/photomarket/internal/infrastructure/midtrans"
	"github.com/honeynil/photomarket/internal/infrastructure/redis"
	"github.com/honeynil/photomarket/internal/observability"
	core "github.com/honeynil/photomarket/internal/repository/postgres"
	service "github.com/honeynil/photomarket/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	// Загружаем конфиг (.env + переменные окружения)
	cfg := config.Load()

	// Инициализируем логи, метрики, трейсы
	shutdown, _ := observability.Setup("photomarket-service")
	defer shutdown(context.Background())

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	userRepo := core.NewPostgresUserRepository(db)
	photoRepo := core.NewPostgresPhotoRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)
	redisClient := redis.NewClient(cfg.RedisAddr)
	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()
	paymentClient := midtrans.NewClient(cfg.MidtransBaseURL, cfg.MidtransServerKey)

	// Инициализируем сервис
	svc := service.NewTransactionService(transactionRepo, photoRepo, userRepo, paymentClient, kafkaProducer, cfg.MidtransServerKey)

	// Консьюмер финализации фото после оплаты
	paymentConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "payments", "photomarket-service-group", transactionRepo, photoRepo)
	go paymentConsumer.Consume(context.Background())
	defer paymentConsumer.Close()

	// Настраиваем роутер
	router := api.SetupRouter(svc, redisClient, cfg.JWTSecret)

	// Запускаем сервер
	server := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on :8080")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
