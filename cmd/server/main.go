package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/healthpalm/aisha/backend/internal/infrastructure/config"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		if err := config.LoadFile(cfg, *configPath); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
