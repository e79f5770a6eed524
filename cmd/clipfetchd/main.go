package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"clipfetch/internal/config"
	"clipfetch/internal/daemonrun"
)

func main() {
	// A .env alongside the binary can supply CLIPFETCH_* overrides.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("clipfetchd: %v", err)
	}
}
