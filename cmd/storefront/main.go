package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cartcache "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/cache"
	cartrepo "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/repository"
	cartservice "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/service"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/gateway"
	h "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/http"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/intent"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/publisher"
	orderrepo "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/repository"
	orderservice "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/service"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/ratelimit"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort          string
	MongoURI          string
	MongoDatabase     string
	RedisAddr         string
	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPass      string
	PostgresDB        string
	MigrationsDir     string
	KafkaBrokers      []string
	JWTSecret         string
	CardProviderURL   string
	CardProviderKey   string
	CardSDKURL        string
	WalletProviderURL string
	WalletProviderKey string
	WalletSDKURL      string
	RateLimit         int
	RateWindow        time.Duration
	SlowThreshold     time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid POSTGRES_PORT: %v", err)
	}
	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT", "30"))
	if err != nil {
		log.Fatalf("invalid RATE_LIMIT: %v", err)
	}

	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "storefront"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      pgPort,
		PostgresUser:      getEnv("POSTGRES_USER", "storefront"),
		PostgresPass:      getEnv("POSTGRES_PASSWORD", "storefront"),
		PostgresDB:        getEnv("POSTGRES_DB", "orders"),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "./migrations"),
		KafkaBrokers:      []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		CardProviderURL:   getEnv("CARD_PROVIDER_URL", "https://api.cardprovider.example"),
		CardProviderKey:   getEnv("CARD_PROVIDER_KEY", ""),
		CardSDKURL:        getEnv("CARD_SDK_URL", "https://js.cardprovider.example/v1"),
		WalletProviderURL: getEnv("WALLET_PROVIDER_URL", "https://api.walletprovider.example"),
		WalletProviderKey: getEnv("WALLET_PROVIDER_KEY", ""),
		WalletSDKURL:      getEnv("WALLET_SDK_URL", "https://js.walletprovider.example/sdk"),
		RateLimit:         rateLimit,
		RateWindow:        time.Minute,
		SlowThreshold:     30 * time.Second,
		RequestTimeout:    30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Cart storage
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Printf("mongodb disconnect: %v", err)
		}
	}()

	cartRepository := cartrepo.NewMongoRepository(mongoDB)
	if err := cartRepository.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create cart indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	discounts := cartservice.NewStaticDiscounts(map[string]decimal.Decimal{
		"WELCOME10": decimal.RequireFromString("10.00"),
		"SAVE5":     decimal.RequireFromString("5.00"),
	})
	cartSvc := cartservice.NewCartService(cartRepository, cartcache.NewRedisCache(redisClient), discounts)

	// Payment intents
	intentStore := intent.NewMemoryStore()
	defer intentStore.Close()

	cardProvider := intent.NewCardClient(provider.NewClient(
		"card", cfg.CardProviderURL, cfg.CardProviderKey, cfg.RequestTimeout))
	intentSvc := intent.NewService(intentStore, cardProvider)

	walletProvider := gateway.NewWalletClient(provider.NewClient(
		"wallet", cfg.WalletProviderURL, cfg.WalletProviderKey, cfg.RequestTimeout))

	// Orders
	creds := &orderrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	orderRepository, err := orderrepo.NewRepository(creds)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer orderRepository.Close()

	if err := orderRepository.RunMigrations(creds); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	finalizer := orderservice.NewFinalizer(orderRepository)

	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	outboxPoller := publisher.NewOutboxPoller(orderRepository, cfg.KafkaBrokers...)
	defer outboxPoller.Close()
	go outboxPoller.Run(pollerCtx)

	// HTTP surface
	checkoutMetrics := metrics.NewCheckoutMetrics("storefront")
	guard := ratelimit.NewGuard(redisClient, cfg.RateLimit, cfg.RateWindow)

	cartHandler := h.NewCartHandler(cartSvc, cfg.RequestTimeout)
	paymentsHandler := h.NewPaymentsHandler(intentSvc, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(h.CheckoutDeps{
		Carts:         cartSvc,
		Finalizer:     finalizer,
		Intents:       intentSvc,
		Wallet:        walletProvider,
		CardSDK:       gateway.NewHTTPSDKLoader(cfg.CardSDKURL),
		WalletSDK:     gateway.NewHTTPSDKLoader(cfg.WalletSDKURL),
		Recorder:      checkoutMetrics,
		SlowThreshold: cfg.SlowThreshold,
	}, cfg.RequestTimeout)

	router := h.NewRouter(cartHandler, paymentsHandler, checkoutHandler, h.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		Guard:          guard,
		Metrics:        checkoutMetrics,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server stopped")
}
