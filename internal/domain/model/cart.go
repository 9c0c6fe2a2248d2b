package model

import "time"

// カートのマージ戦略（ログイン時にゲストカートを統合する）
type CartMergeStrategy string

const (
	//数量を加算
	CartMergeSum CartMergeStrategy = "sum"
	//大きい方を採用
	CartMergeMax CartMergeStrategy = "max"
)

// カート。会員（UserID）か匿名セッション（SessionID）のどちらかが所有する。
// UpdatedAtはバージョンスタンプ。業務フィールドが変わらない操作でも必ず進める。
type Cart struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64 `gorm:"index" json:"user_id,omitempty"`
	SessionID string `gorm:"type:varchar(64);index" json:"session_id,omitempty"`

	//適用中クーポン（無ければnil）
	CouponID *int64 `gorm:"index" json:"coupon_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}
