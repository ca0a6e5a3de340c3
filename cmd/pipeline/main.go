package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agenthands/comprank/internal/config"
	"github.com/agenthands/comprank/internal/core"
	"github.com/agenthands/comprank/internal/geo"
	"github.com/agenthands/comprank/internal/llm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := flag.String("config", "config/config.toml", "path to config file")
	useFeedback := flag.Bool("feedback", false, "fold the feedback log into training labels")
	reset := flag.Bool("reset", false, "discard feedback and rebuild from the canonical dataset")
	flag.Parse()

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		*cfgPath = envPath
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", *cfgPath, err)
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	if envAPIKey := os.Getenv("LLM_API_KEY"); envAPIKey != "" {
		cfg.LLM.APIKey = envAPIKey
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var llmClient llm.Client
	if cfg.LLM.Provider != "" {
		llmClient, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
	} else {
		log.Println("No LLM provider configured: address cleanup and narratives disabled")
	}

	p := &core.Pipeline{
		Config: cfg,
		Geocoder: geo.NewNominatimClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent,
			time.Duration(cfg.Geocode.TimeoutSeconds)*time.Second),
		LLM: llmClient,
	}

	switch {
	case *reset:
		err = p.Reset(ctx)
	default:
		err = p.Run(ctx, core.RunOptions{UseFeedback: *useFeedback})
	}
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	log.Println("Pipeline complete")
}
