package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Webhook二重配送の先回り判定: dedup:webhook:{provider}:{event_id}
	KeyDedupWebhook = "dedup:webhook:%s:%s"

	// 注文ステータスのキャッシュ: order_status:{order_id}
	KeyOrderStatus = "order_status:%d"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

// SeenWebhook は既に処理済みのイベントか（先回りの軽量判定。正は一意制約）。
func SeenWebhook(ctx context.Context, rdb *redis.Client, provider, eventID string) (bool, error) {
	n, err := rdb.Exists(ctx, fmt.Sprintf(KeyDedupWebhook, provider, eventID)).Result()
	return n > 0, err
}

// MarkWebhook は処理済みイベントを記録する。
func MarkWebhook(ctx context.Context, rdb *redis.Client, provider, eventID string) error {
	return rdb.Set(ctx, fmt.Sprintf(KeyDedupWebhook, provider, eventID), "1", TTLDedup).Err()
}

// CacheOrderStatus はステータス照会用の短命キャッシュを書く。
func CacheOrderStatus(ctx context.Context, rdb *redis.Client, orderID int64, status string) error {
	return rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), status, TTLStatusCache).Err()
}

// GetOrderStatus はキャッシュ済みステータスを読む。未キャッシュは空文字（エラーなし）。
func GetOrderStatus(ctx context.Context, rdb *redis.Client, orderID int64) (string, error) {
	v, err := rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
