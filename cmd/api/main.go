package main

import (
	"context"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/topup_be/internal/config"
	"github.com/Windi-Fikriyansyah/topup_be/internal/db"
	"github.com/Windi-Fikriyansyah/topup_be/internal/events"
	"github.com/Windi-Fikriyansyah/topup_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/topup_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/topup_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/topup_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/ledger"
	"github.com/Windi-Fikriyansyah/topup_be/internal/store"
	"github.com/Windi-Fikriyansyah/topup_be/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(telemetry.Config{
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: "topup-api",
		Environment: cfg.AppEnv,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("[telemetry] shutdown: %v", err)
		}
	}()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		if cfg.KVBackend == "redis" {
			log.Fatalf("[redis] %s unreachable: %v", cfg.RedisAddr, err)
		}
		log.Printf("[redis] %s unreachable, realtime stays local: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		rdb = nil
	} else {
		log.Printf("[redis] connected to %s", cfg.RedisAddr)
	}

	kv, err := store.Open(store.Options{
		Backend:   cfg.KVBackend,
		DB:        gdb,
		PebbleDir: cfg.PebbleDir,
		Redis:     rdb,
	})
	if err != nil {
		log.Fatal(err)
	}
	if c, ok := kv.(io.Closer); ok {
		defer c.Close()
	}
	log.Printf("[store] using %s backend", cfg.KVBackend)

	reg := metrics.NewRegistry()

	brands, err := catalog.LoadBrandTable(cfg.BrandTablePath)
	if err != nil {
		log.Fatal(err)
	}
	catalogSvc := catalog.NewService(catalog.Options{
		Docs:        store.NewDocuments(kv),
		Fetcher:     digiflazz.NewClient(cfg.DigiflazzBaseURL, cfg.DigiflazzTimeout),
		Transformer: catalog.Transformer{Brands: brands, MarkupPercent: cfg.MarkupPercent},
		EnvCredentials: digiflazz.Credentials{
			Username: cfg.DigiflazzUsername,
			APIKey:   cfg.DigiflazzAPIKey,
		},
		SecretKey: cfg.SecretKey,
		Metrics:   reg,
	})

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	hub := realtime.NewHub()
	go hub.Run(ctx)
	bridge := realtime.NewBridge(hub, rdb)
	if rdb != nil {
		go bridge.Listen(ctx)
	}

	ledgerSvc := ledger.NewService(ledger.Options{
		DB:          gdb,
		SettleDelay: cfg.SettleDelay,
		Events:      publisher,
		Status:      bridge,
		Metrics:     reg,
	})
	sweeper := &ledger.Sweeper{Ledger: ledgerSvc, Interval: cfg.SweepInterval}
	go sweeper.Run(ctx)

	authH, err := handlers.NewAuthHandler(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.JWTExpiresMin, cfg.CookieSecure)
	if err != nil {
		log.Fatal(err)
	}

	var googleH *handlers.GoogleOAuthHandler
	if cfg.GoogleClientID != "" {
		googleH = &handlers.GoogleOAuthHandler{
			JWTSecret:       cfg.JWTSecret,
			Expires:         cfg.JWTExpiresMin,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
			AllowedEmails:   cfg.AdminGoogleEmails,
			SecureCookie:    cfg.CookieSecure,
		}
	}

	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length, Content-Disposition",
		AllowCredentials: true,
	}))
	app.Use(middleware.Tracing("topup-api"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(reg.Handler()))

	routes := &handlers.Routes{
		JWTSecret:         cfg.JWTSecret,
		Auth:              authH,
		Google:            googleH,
		Products:          handlers.NewProductHandler(catalogSvc),
		Categories:        handlers.NewCategoryHandler(catalogSvc),
		Payments:          handlers.NewPaymentHandler(),
		Transactions:      handlers.NewTransactionHandler(catalogSvc, ledgerSvc, hub),
		AdminCatalog:      handlers.NewAdminCatalogHandler(catalogSvc),
		AdminTransactions: handlers.NewAdminTransactionHandler(ledgerSvc),
	}
	routes.Mount(app)

	go func() {
		<-ctx.Done()
		log.Println("[api] shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[api] shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Printf("[api] listen: %v", err)
	}
}
