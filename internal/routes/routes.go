package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/config"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/handlers"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/middleware"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/pricing"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/promo"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/repository"
	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/services"
	"go.uber.org/zap"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) error {
	policy, err := pricing.ParsePolicy(
		cfg.GroupMultipliersBps,
		cfg.PackageCatalog,
		cfg.FeeRateBps,
		cfg.FeeFixedCents,
	)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	trainerProfileRepo := repository.NewTrainerProfileRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	cartRepo := repository.NewCartRepository(db)

	var promoClient *promo.Client
	if cfg.PromoServiceURL != "" {
		promoClient = promo.NewClient(cfg.PromoServiceURL)
	}

	slotService := services.NewSlotService(
		availabilityRepo, reservationRepo, cfg.SlotHorizonDays, cfg.SlotMaxRangeDays)
	reservationService := services.NewReservationService(
		db, reservationRepo, availabilityRepo, userRepo, trainerProfileRepo,
		policy, time.Duration(cfg.HoldMinutes)*time.Minute)

	var promoSource services.PromoSource
	if promoClient != nil {
		promoSource = promoClient
	}
	cartService := services.NewCartService(cartRepo, reservationRepo, promoSource, policy, logger)
	checkoutService := services.NewCheckoutService(
		db, cartService, reservationService, &services.AutoApproveCharger{Logger: logger}, logger)

	authHandler := handlers.NewAuthHandler(db, userRepo, trainerProfileRepo, cfg.JWTSecret)
	trainerHandler := handlers.NewTrainerHandler(db, trainerProfileRepo, availabilityRepo, slotService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	v1 := api.Group("/v1")

	trainers := v1.Group("/trainers")
	trainers.Get("", trainerHandler.ListTrainers)
	trainers.Put("/profile", middleware.AuthRequired(cfg.JWTSecret), trainerHandler.UpdateProfile)
	trainers.Get("/availability", middleware.AuthRequired(cfg.JWTSecret), trainerHandler.GetAvailability)
	trainers.Put("/availability", middleware.AuthRequired(cfg.JWTSecret), trainerHandler.PutAvailability)
	trainers.Get("/:id/slots", trainerHandler.ListSlots)

	authProtected := v1.Group("", middleware.AuthRequired(cfg.JWTSecret))

	reservations := authProtected.Group("/reservations")
	reservations.Post("", reservationHandler.Create)
	reservations.Get("", reservationHandler.List)
	reservations.Get("/:id", reservationHandler.Get)
	reservations.Put("/:id/status", reservationHandler.UpdateStatus)

	cart := authProtected.Group("/cart")
	cart.Get("", cartHandler.Get)
	cart.Post("/items", cartHandler.AddItem)
	cart.Delete("/items/:key", cartHandler.RemoveItem)
	cart.Put("/items/:key/quantity", cartHandler.SetQuantity)
	cart.Post("/promo", cartHandler.ApplyPromo)

	authProtected.Post("/checkout", checkoutHandler.Checkout)

	return nil
}
