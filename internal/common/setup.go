package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"genealogy-compensation-go/internal/database"
	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeDatabase loads the compensation plan and opens the database
// service the engines run in
func InitializeDatabase(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	p, err := plan.Load(cfg.PlanFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation plan: %w", err)
	}
	if cfg.PlanFile != "" {
		zap.L().Info("Loaded compensation plan", zap.String("file", cfg.PlanFile))
	} else {
		zap.L().Info("Using default compensation plan")
	}

	dbService, err := database.NewService(ctx, cfg.Database, p)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
