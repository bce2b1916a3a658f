package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	httpapi "skycast/internal/api/http"
	"skycast/internal/config"
	"skycast/internal/gateway"
	"skycast/internal/scheduler"
	"skycast/internal/session"
	"skycast/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	st, err := store.Open(cfg.StorePath, cfg.MaxRecents)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open location store")
	}
	defer st.Close()

	gw, err := gateway.NewOpenWeather(gateway.Config{
		APIKey:      cfg.OpenWeatherAPIKey,
		BaseURL:     cfg.OpenWeatherBaseURL,
		GeoURL:      cfg.OpenWeatherGeoURL,
		SearchLimit: cfg.SearchLimit,
		SampleCount: cfg.ForecastSamples,
		Client:      &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize weather gateway")
	}

	coord := session.New(session.Config{
		Gateway:         gw,
		Store:           st,
		DefaultLocation: cfg.DefaultLocation,
	})
	defer coord.Close()

	// Restore the persisted session without blocking server startup.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := coord.Start(ctx); err != nil {
			log.Error().Err(err).Msg("initial weather load failed")
		}
	}()

	refresher := scheduler.New(coord, cfg.RefreshInterval)
	if err := refresher.Start(); err != nil {
		log.Fatal().Err(err).Msg("cannot start session refresher")
	}
	defer refresher.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "skycast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skycast",
		})
	})

	httpapi.RegisterRoutes(app, coord)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
