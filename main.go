package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokercrm/config"
	"brokercrm/middleware"
	"brokercrm/routes"
	"brokercrm/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			log.Printf("Sentry initialization failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := config.DB

	app := fiber.New(fiber.Config{
		AppName:      "BrokerCRM",
		BodyLimit:    20 * 1024 * 1024, // document uploads
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, db)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reminderWorker := worker.NewReminderWorker(db, log.New(os.Stdout, "REMINDER: ", log.LstdFlags))
	go reminderWorker.Start(ctx)

	sessionWorker := worker.NewSessionWorker(db, log.New(os.Stdout, "SESSION: ", log.LstdFlags))
	go sessionWorker.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
