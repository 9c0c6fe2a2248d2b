package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/handler"
	"shop/internal/infra/db"
	"shop/internal/infra/redisx"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/infra/stream"
	"shop/internal/pricing"
	"shop/internal/server"
	"shop/internal/usecase"

	"github.com/redis/go-redis/v9"
)

func main() {
	//.envは無くてもよい（本番は実環境変数）
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.ProductImage{},
		&model.Inventory{},
		&model.Coupon{},
		&model.CouponRedemption{},
		&model.Cart{},
		&model.CartItem{},
		&model.Address{},
		&model.ShippingMethod{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderEvent{},
		&model.Payment{},
		&model.PaymentEvent{},
		&model.ReturnRequest{},
	); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	variantRepo := infraRepo.NewVariantGormRepository(gormDB)
	shippingRepo := infraRepo.NewShippingMethodGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	orderEventRepo := infraRepo.NewOrderEventGormRepository(gormDB)
	returnRepo := infraRepo.NewReturnGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//任意の外部インフラ。設定が無ければnilのまま（全操作no-op）。
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
	}
	producer := stream.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, 256)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	producer.Start(ctx)

	//価格エンジン
	engine := pricing.NewEngine(pricing.Config{
		TaxRatePercent:        cfg.TaxRatePercent,
		ShippingFallbackRate:  cfg.ShippingFallbackRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	})

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, couponRepo, inventoryRepo, variantRepo, engine, cfg.CartMaxQty, cfg.CartMergeStrategy)
	checkoutUC := usecase.NewCheckoutUsecase(txm, cartRepo, cartItemRepo, couponRepo, inventoryRepo, variantRepo, shippingRepo, engine, producer, cfg.PaymentCurrency)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, orderEventRepo, producer, rdb)
	paymentUC := usecase.NewPaymentUsecase(txm, orderRepo, producer, cfg.PaymentCurrency)
	webhookUC := usecase.NewWebhookUsecase(txm, producer, rdb, cfg.WebhookSecret)
	returnUC := usecase.NewReturnUsecase(txm, orderRepo, returnRepo, producer)

	//Handler生成
	handlers := server.Handlers{
		Cart:     handler.NewCartHandler(cartUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC, shippingRepo),
		Order:    handler.NewOrderHandler(orderUC, returnUC),
		Admin:    handler.NewAdminOrderHandler(orderUC, cartUC),
		Payment:  handler.NewPaymentHandler(paymentUC, webhookUC),
	}

	e := server.New(cfg, handlers)
	if err := server.Start(e, cfg.Port); err != nil {
		slog.Error("server stopped", "error", err)
		producer.Close()
		os.Exit(1)
	}
}
