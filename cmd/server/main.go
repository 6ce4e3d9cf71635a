package main

import (
	"log"
	"strconv"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/config"
	httpctl "github.com/saeedj2446/barton-back-sub003/internal/controllers/http"
	"github.com/saeedj2446/barton-back-sub003/internal/gateway"
	mmysql "github.com/saeedj2446/barton-back-sub003/internal/infra/mysql"
	"github.com/saeedj2446/barton-back-sub003/internal/infra/rabbitmq"
	mysqlrepo "github.com/saeedj2446/barton-back-sub003/internal/repository/mysql"
	"github.com/saeedj2446/barton-back-sub003/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := mmysql.NewMySQLFromEnv()
	if err != nil {
		logger.Fatal("db: connect", zap.Error(err))
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	store := mysqlrepo.NewStore(db)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, "order.exchange")
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	gateways := gateway.NewRegistry(cfg.DefaultGateway)
	gateways.Register(gateway.NewZarinpal(gateway.ZarinpalConfig{
		MerchantID: cfg.Zarinpal.MerchantID,
		Sandbox:    cfg.Zarinpal.Sandbox,
		Timeout:    cfg.GatewayTimeout,
	}, logger))
	gateways.Register(gateway.NewRayanPay(gateway.RayanPayConfig{
		MerchantID: cfg.RayanPay.MerchantID,
		APIKey:     cfg.RayanPay.APIKey,
		Sandbox:    cfg.RayanPay.Sandbox,
		Timeout:    cfg.GatewayTimeout,
	}, logger))
	gateways.Register(gateway.NewParsian(gateway.ParsianConfig{
		LoginAccount: cfg.Parsian.LoginAccount,
		Timeout:      cfg.GatewayTimeout,
	}, logger))

	resolver := services.NewSellerResolver(store, logger)
	orders := services.NewOrderService(store, resolver, services.NewCreditTierDiscount(), publisher, logger)
	payments := services.NewPaymentService(store, gateways, publisher, logger)

	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisHost + ":6379",
			DB:           0,
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		orders.SetRedisClient(redisClient)
		payments.SetRedisClient(redisClient)
	}

	handler := httpctl.NewHandler(orders, payments, redisClient, cfg.CallbackBaseURL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	addr := ":" + strconv.Itoa(cfg.Port)
	logger.Info("starting settlement service", zap.String("addr", addr), zap.Strings("gateways", gateways.Names()))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server run", zap.Error(err))
	}
}
