package model

import "time"

// 在庫切れ時の受注ポリシー
type BackorderPolicy string

const (
	//在庫以上は受け付けない
	BackorderBlock BackorderPolicy = "block"
	//在庫を超えても受け付ける
	BackorderAllow BackorderPolicy = "allow"
	//allowと同じ受け付け方で、取り寄せフラグと入荷予定を返す
	BackorderNotify BackorderPolicy = "notify"
)

// 在庫。バリアントごとに1行。
// policy=blockのときqty_availableは絶対に負にならない（減算はチェックアウトTx内の行ロック下のみ）。
type Inventory struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	VariantID int64 `gorm:"not null;uniqueIndex" json:"variant_id"`

	QtyAvailable int64 `gorm:"not null;default:0" json:"qty_available"`

	BackorderPolicy BackorderPolicy `gorm:"type:varchar(30);not null;default:'block'" json:"backorder_policy"`

	//入荷予定日（notify用、任意）
	ExpectedRestockDate *time.Time `json:"expected_restock_date,omitempty"`
}

// AllowsBackorder はポリシーが在庫超過を許すか。
func (i Inventory) AllowsBackorder() bool {
	return i.BackorderPolicy == BackorderAllow || i.BackorderPolicy == BackorderNotify
}
