package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/portfolio-backtest/internal/backtest"
	"github.com/mauv0809/portfolio-backtest/internal/db"
	"github.com/mauv0809/portfolio-backtest/internal/handlers"
	"github.com/mauv0809/portfolio-backtest/internal/marketdata"
)

const defaultCacheTTL = 15 * time.Minute

func main() {
	// Load .env file if it exists (local dev)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()

	// Market data provider: Yahoo client behind a TTL cache
	cacheTTL := defaultCacheTTL
	if raw := os.Getenv("MARKET_DATA_CACHE_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			log.Printf("Warning: invalid MARKET_DATA_CACHE_TTL_MINUTES %q, using default", raw)
		} else {
			cacheTTL = time.Duration(minutes) * time.Minute
		}
	}
	provider := marketdata.NewProvider(marketdata.NewClient(), marketdata.NewCache(cacheTTL))
	svc := backtest.NewService(provider)

	// Database is optional: scenario endpoints are disabled without it
	var repo *db.Repository
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		if err := db.RunMigrations(databaseURL); err != nil {
			log.Printf("Warning: Could not run migrations: %v", err)
		} else {
			log.Println("Migrations completed")
		}

		pool, err := db.Connect(ctx, databaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Continuing without scenario persistence...")
		} else {
			defer pool.Close()
			repo = db.NewRepository(pool)
			log.Println("Connected to database")
		}
	} else {
		log.Println("DATABASE_URL not set, scenario persistence disabled")
	}

	// Setup Echo
	e := echo.New()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.Printf("%d %s", v.Status, v.URI)
			} else {
				log.Printf("%d %s - %v", v.Status, v.URI, v.Error)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Setup handlers
	h := handlers.New(svc)

	// Routes
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/backtest", h.RunBacktest)
	api.POST("/backtest/export", h.ExportBacktest)
	api.GET("/benchmark/:ticker", h.GetBenchmark)

	if repo != nil {
		sh := handlers.NewScenarioHandler(repo, svc)
		api.POST("/scenarios", sh.CreateScenario)
		api.GET("/scenarios", sh.ListScenarios)
		api.GET("/scenarios/:id", sh.GetScenario)
		api.POST("/scenarios/:id/run", sh.RunScenario)
		api.DELETE("/scenarios/:id", sh.DeleteScenario)
		log.Println("Scenario endpoints registered")
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
