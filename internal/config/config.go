package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"shop/internal/domain/model"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // スタッフ用JWT署名シークレット

	// 価格計算
	TaxRatePercent        decimal.Decimal // 税率%（GST。18 → 18%）
	ShippingFallbackRate  decimal.Decimal // 配送方法未指定時の送料
	FreeShippingThreshold decimal.Decimal // この金額以上で送料無料

	// カート
	CartMaxQty        int64                   // 1明細の数量上限
	CartMergeStrategy model.CartMergeStrategy // ログイン時のマージ戦略

	// 決済
	PaymentCurrency string // INRなど
	WebhookSecret   string // HMAC検証用（空なら検証しない）

	// 任意の外部インフラ（空なら無効）
	RedisAddr       string
	KafkaBrokers    []string
	KafkaOrderTopic string
}

// Loadは環境変数から設定を組み立てる。
// DB接続はinfra/dbが直接読むのでここでは持たない。
func Load() (Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	taxRate, err := decimalEnv("GST_RATE_PERCENT", "18")
	if err != nil {
		return Config{}, err
	}
	fallbackRate, err := decimalEnv("SHIPPING_FALLBACK_RATE", "49.00")
	if err != nil {
		return Config{}, err
	}
	freeOver, err := decimalEnv("FREE_SHIPPING_THRESHOLD", "999.00")
	if err != nil {
		return Config{}, err
	}

	maxQty := int64(99)
	if v := os.Getenv("CART_MAX_QTY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("CART_MAX_QTY must be a positive number")
		}
		maxQty = n
	}

	merge := model.CartMergeSum
	switch strings.ToLower(getenv("CART_MERGE_STRATEGY", "sum")) {
	case "sum":
		merge = model.CartMergeSum
	case "max":
		merge = model.CartMergeMax
	default:
		return Config{}, fmt.Errorf("CART_MERGE_STRATEGY must be sum or max")
	}

	return Config{
		Port:                  getenv("PORT", "8080"),
		JWTSecret:             jwtSecret,
		TaxRatePercent:        taxRate,
		ShippingFallbackRate:  fallbackRate,
		FreeShippingThreshold: freeOver,
		CartMaxQty:            maxQty,
		CartMergeStrategy:     merge,
		PaymentCurrency:       getenv("PAYMENT_CURRENCY", "INR"),
		WebhookSecret:         os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		KafkaBrokers:          splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:       getenv("KAFKA_ORDER_TOPIC", "order-events"),
	}, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func decimalEnv(key string, def string) (decimal.Decimal, error) {
	v := getenv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s must be >= 0", key)
	}
	return d, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
