package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"foodcart/internal/config"
	"foodcart/internal/handler"
	"foodcart/internal/infra/cache"
	"foodcart/internal/infra/db"
	"foodcart/internal/infra/mongostore"
	infraRepo "foodcart/internal/infra/repository"
	"foodcart/internal/metrics"
	"foodcart/internal/payment"
	"foodcart/internal/pkg/logging"
	"foodcart/internal/repository"
	"foodcart/internal/server"
	"foodcart/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("foodcart: %v", err)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.GoEnv, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//DB
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	users := infraRepo.NewUserGormRepository(gormDB)
	addresses := infraRepo.NewAddressGormRepository(gormDB)
	products := infraRepo.NewProductGormRepository(gormDB)
	audit := infraRepo.NewAuditLogGormRepository(gormDB)

	var (
		carts  repository.CartRepository
		orders repository.OrderRepository
		tx     repository.TransactionManager
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mdb, err := mongostore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
		if err := mongostore.CreateIndexes(ctx, mdb); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		carts = mongostore.NewCartMongoRepository(mdb)
		orders = mongostore.NewOrderMongoRepository(mdb)
		tx = mongostore.NewTxManagerMongo(mdb)
	default:
		carts = infraRepo.NewCartGormRepository(gormDB)
		orders = infraRepo.NewOrderGormRepository(gormDB)
		tx = infraRepo.NewTxManagerGorm(gormDB)
	}
	logger.Info("stores ready", zap.String("cart_order_store", cfg.StoreDriver))

	//Redis
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	cartCache := cache.NewRedisCartCache(rdb, cfg.CartCacheTTL)
	attempts := cache.NewRedisAttemptStore(rdb, cfg.SettlementAttemptTTL)
	intents := cache.NewRedisIntentStore(rdb, cfg.SettlementAttemptTTL)

	//Payment
	secret := []byte(cfg.PaymentSigningSecret)
	var gateway payment.Gateway
	switch cfg.GatewayMode {
	case config.GatewayModeRazorpay:
		gateway = payment.NewRazorpayGateway(payment.RazorpayConfig{
			BaseURL:   cfg.GatewayBaseURL,
			KeyID:     cfg.GatewayKeyID,
			KeySecret: cfg.GatewayKeySecret,
			Timeout:   cfg.GatewayTimeout,
		})
	default:
		logger.Warn("using sandbox payment gateway")
		gateway = payment.NewSandboxGateway(secret)
	}

	verifier, err := payment.NewVerifier(secret, gateway, attempts, intents,
		payment.WithAuditLog(audit),
		payment.WithMetrics(m),
		payment.WithProofTTL(cfg.PaymentProofTTL),
		payment.WithStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		return err
	}

	//Usecase
	cartUC := usecase.NewCartUsecase(carts, products, cartCache, m, cfg.StoreTimeout)
	paymentUC := usecase.NewPaymentUsecase(verifier, carts, cfg.StoreTimeout)
	orderUC := usecase.NewOrderUsecase(tx, orders, users, addresses, audit, verifier, cartCache, m, cfg.StoreTimeout)
	addressUC := usecase.NewAddressUsecase(addresses)

	//Handler + Server
	e := server.New(server.Deps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Users:    users,
		Handlers: server.Handlers{
			Cart:    handler.NewCartHandler(cartUC),
			Payment: handler.NewPaymentHandler(paymentUC),
			Order:   handler.NewOrderHandler(orderUC),
			Address: handler.NewAddressHandler(addressUC),
		},
	})

	return server.Run(ctx, e, cfg.Addr(), logger)
}
