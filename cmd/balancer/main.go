package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ljluestc/balancer/internal/balancer"
	"github.com/ljluestc/balancer/internal/config"
	"github.com/ljluestc/balancer/internal/handler"
	"github.com/ljluestc/balancer/internal/middleware"
	"github.com/ljluestc/balancer/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"algorithm": string(cfg.Balancer.Algorithm),
		"servers":   len(cfg.Servers),
	}).Info("Starting balancer")

	probe := newHTTPProbe(cfg.HealthProbe.Path, cfg.Balancer.HealthCheckTimeout)

	lb, err := balancer.New(cfg.Balancer, probe, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create balancer")
	}

	for _, srv := range cfg.ToServers() {
		if !lb.AddServer(srv) {
			log.WithField("server_id", srv.ID).Fatal("Failed to register server")
		}
	}
	log.Infof("Registered %d servers", len(cfg.Servers))

	var adminServer *http.Server
	if cfg.Admin.Enabled {
		adminHandler := handler.NewAdminHandler(lb, log)
		router := adminHandler.Router()
		router.Use(middleware.JWTAuth(cfg.Admin.JWTSecret, log))

		adminServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			log.Infof("Admin API listening on :%d", cfg.Admin.Port)
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("Admin server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down admin server")
		}
	}
	lb.Destroy()
	log.Info("Balancer stopped")
}
