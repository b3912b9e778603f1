package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"shop-billing/internal/api"
	"shop-billing/internal/config"
	"shop-billing/internal/repository"
	"shop-billing/internal/service"
	"shop-billing/migrations"
)

func connectDB(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB %s", cfg.DBName)
				return db, nil
			}
		}
		log.Printf("Retry %d: failed to connect to DB %s: %v", i+1, cfg.DBName, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s after retries: %v", cfg.DBName, err)
}

func newStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Storage == "mysql" {
		db, err := connectDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := migrations.AutoMigrate(3, db); err != nil {
			return nil, fmt.Errorf("migrate: %v", err)
		}
		return repository.NewMySQLStore(db), nil
	}
	return repository.NewFileStore(cfg.DataFile)
}

func main() {
	cfg := config.Load()

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	kafkaWriter := config.NewKafkaWriter("billing-topic")

	pricingService := service.NewPricingService(store, cfg)
	customerService := service.NewCustomerService(store)
	catalogService := service.NewCatalogService(store, cfg)
	orderService := service.NewOrderService(store, pricingService, customerService, cfg, kafkaWriter, rdb)

	authHandler := api.NewAuthHandler(cfg)
	customerHandler := api.NewCustomerHandler(customerService)
	catalogHandler := api.NewCatalogHandler(catalogService)
	orderHandler := api.NewOrderHandler(orderService, pricingService, customerService)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(10),
				Burst:     30,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	// Customer-facing routes
	e.POST("/customers/login", customerHandler.Login)
	e.POST("/customers/wishlist", customerHandler.UpdateWishlist)
	e.GET("/customers/bills", customerHandler.Bills)
	e.GET("/products", catalogHandler.ListProducts)
	e.GET("/offers", catalogHandler.ListActiveOffers)
	e.GET("/shop", catalogHandler.Shop)
	e.POST("/cart/price", orderHandler.PriceCart)
	e.POST("/requests", orderHandler.SubmitRequest)

	// Retailer admin routes
	e.POST("/admin/login", authHandler.Login)
	admin := e.Group("/admin", api.AdminMiddleware(cfg))
	admin.POST("/products", catalogHandler.AddProducts)
	admin.PUT("/products/:id", catalogHandler.UpdateProduct)
	admin.POST("/products/:id/stock", catalogHandler.AdjustStock)
	admin.DELETE("/products/:id", catalogHandler.DeleteProduct)
	admin.GET("/low-stock", catalogHandler.LowStock)
	admin.GET("/offers", catalogHandler.ListOffers)
	admin.POST("/offers", catalogHandler.CreateOffer)
	admin.PUT("/offers/:id/toggle", catalogHandler.ToggleOffer)
	admin.DELETE("/offers/:id", catalogHandler.DeleteOffer)
	admin.POST("/shop", catalogHandler.UpdateShop)
	admin.GET("/requests", orderHandler.PendingRequests)
	admin.POST("/requests/:id/approve", orderHandler.ApproveRequest)
	admin.POST("/requests/:id/reject", orderHandler.RejectRequest)
	admin.GET("/bills", orderHandler.Bills)
	admin.GET("/customers", customerHandler.ListCustomers)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "shop-billing",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(cfg.Addr))
}
