package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/senyabanana/auction-service/internal/chronograph"
	"github.com/senyabanana/auction-service/internal/config"
	"github.com/senyabanana/auction-service/internal/db"
	"github.com/senyabanana/auction-service/internal/registry"
	"github.com/senyabanana/auction-service/internal/repository"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	auctionRepo := repository.NewPostgresAuctionRepository(dbPool, cfg.ProcessingLock())
	client := registry.NewClient(registry.ClientConfig{
		APIHost:    cfg.APIHost,
		APIVersion: cfg.APIVersion,
		APIToken:   cfg.APIToken,
		DSHost:     cfg.DSHost,
		DSUser:     cfg.DSUser,
		DSPassword: cfg.DSPassword,
		UserAgent:  cfg.UserAgent,
	}, logger)

	engine := chronograph.NewEngine(auctionRepo, client, cfg.LatencyTime(), logger)
	worker := chronograph.NewChronograph(auctionRepo, engine, cfg.ProcessingLock(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Run(ctx)
}
