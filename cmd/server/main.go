package main // Entry point package

import (
	"context" // bounded startup calls
	"log"     // Logging library
	"time"    // durations for TTLs

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/realtime-chat/internal/cache"      // revocation cache
	"github.com/iliyamo/realtime-chat/internal/chat"       // session/broadcast engine
	"github.com/iliyamo/realtime-chat/internal/config"     // Internal config loader
	"github.com/iliyamo/realtime-chat/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/realtime-chat/internal/handler"    // HTTP and websocket handlers
	"github.com/iliyamo/realtime-chat/internal/queue"      // broker consumer
	"github.com/iliyamo/realtime-chat/internal/repository" // DB repositories
	"github.com/iliyamo/realtime-chat/internal/router"     // Internal router setup
	queue_publisher "github.com/iliyamo/realtime-chat/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the env directly
	cfg := config.Load()

	// Relational store: users and message history.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	cancel()

	// Revocation cache.  Unlike optional caching, this is load-bearing for
	// authentication, so an unreachable Redis aborts startup.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	tokenTTL := time.Duration(cfg.TokenTTLMin) * time.Minute
	sessions := cache.NewRedisSessions(rdb, tokenTTL)

	users := repository.NewUserRepo(db)
	messages := repository.NewMessageRepo(db)

	// Broker pipeline: every accepted line is published best-effort and a
	// background consumer appends it to the audit log.
	publisher := queue_publisher.New(queue.BrokerURL())
	defer publisher.Close()
	go queue.StartChatLogConsumer()

	room := chat.NewRoom(messages, publisher)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, sessions), sessions, rdb, cfg.JWTSecret)
	router.RegisterChat(e,
		handler.NewWSHandler(room, cfg.JWTSecret, sessions, cfg.Origins),
		handler.NewChatHandler(messages),
		sessions, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
