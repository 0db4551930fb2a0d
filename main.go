package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"edge_gate/internal/config"
	"edge_gate/internal/server"
	"edge_gate/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	var basePath string
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load MainConfig
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logManager := utils.NewManager(cfg.LogPath)
	utils.SetDefault(logManager)
	defer logManager.Sync()

	// Load rules
	ruleSet, err := config.LoadRules(cfg)
	if err != nil {
		log.Fatalf("Load rules failed: %v", err)
	}
	utils.LogInvalidWhitelist(ruleSet.Whitelist)
	log.Printf("Loaded %d whitelist entries, mode=%s", ruleSet.Whitelist.Len(), ruleSet.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Ready to start server on port %s", cfg.Port)
	if err := server.StartServer(ctx, cfg, ruleSet); err != nil {
		log.Printf("Server failed: %v", err)
		return
	}
	log.Println("Server stopped")
}
