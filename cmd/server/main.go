package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/config"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/database"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/routes"
	"go.uber.org/zap"
)

const holdSweepInterval = time.Minute

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		logger.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB()

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, database.DB, logger); err != nil {
		logger.Fatal("Failed to register routes", zap.Error(err))
	}

	go sweepExpiredHolds(logger)

	// 4. Start Server
	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed to start", zap.Error(err))
	}
}

func buildLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// sweepExpiredHolds frees slots whose pending checkout holds have lapsed.
func sweepExpiredHolds(logger *zap.Logger) {
	reservationRepo := repository.NewReservationRepository(database.DB)
	ticker := time.NewTicker(holdSweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		released, err := reservationRepo.ExpirePendingBefore(ctx, time.Now())
		cancel()
		if err != nil {
			logger.Error("expired hold sweep failed", zap.Error(err))
			continue
		}
		if released > 0 {
			logger.Info("released expired holds", zap.Int64("count", released))
		}
	}
}
