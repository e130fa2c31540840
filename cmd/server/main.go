package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/auth"
	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/database"
	"github.com/iliyamo/inventory-management/internal/handler"
	"github.com/iliyamo/inventory-management/internal/queue"
	"github.com/iliyamo/inventory-management/internal/repository"
	"github.com/iliyamo/inventory-management/internal/router"
	"github.com/iliyamo/inventory-management/internal/security"
	"github.com/iliyamo/inventory-management/internal/token"
	"github.com/iliyamo/inventory-management/internal/ws"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := repository.NewSessionRepo(db)
	attempts := repository.NewAttemptRepo(db)
	logs := repository.NewLogRepo(db)
	notifications := repository.NewNotificationRepo(db)

	signer := token.NewService(cfg)
	policy := security.NewPolicy(cfg, attempts, users, sessions, tokens)
	auditor := security.NewLogger(cfg, logs, queue.NewPublisher())
	authSvc := auth.NewService(cfg, users, tokens, sessions, policy, signer, auditor, auth.LogMailer{})

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, notifications, tokens, users, signer)

	scheduler := security.NewScheduler(cfg.CleanupInterval, policy, auditor)
	scheduler.Start()
	defer scheduler.Stop()

	go queue.StartAlertConsumer() // records escalated alerts to logs/security.log

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting disabled")
	}

	e := echo.New()
	router.Register(e,
		handler.NewAuthHandler(cfg, authSvc),
		handler.NewNotificationHandler(gateway, notifications),
		gateway, signer, tokens, sessions, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
