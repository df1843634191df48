package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"task-tracker/internal/config"
	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/handlers"
	"task-tracker/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg.DBDSN)

	var broadcaster events.Broadcaster = events.Noop{}
	if cfg.NATSURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		bc, err := events.Connect(ctx, cfg.NATSURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer bc.Close()
		broadcaster = bc
		log.Printf("connected to NATS at %s", cfg.NATSURL)
	} else {
		log.Println("NATS_URL is empty, realtime events disabled")
	}

	handlers.Init(database.DB, broadcaster, cfg.JWTSecret)

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
