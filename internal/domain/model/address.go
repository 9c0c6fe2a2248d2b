package model

import "time"

// 配送先住所。注文ごとに所有するスナップショット（共有しない）。
type Address struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//宛名
	FullName string `gorm:"type:varchar(120);not null" json:"full_name"`

	//電話番号
	Phone string `gorm:"type:varchar(30)" json:"phone"`

	//番地など
	Line1 string `gorm:"type:varchar(180);not null" json:"line1"`

	//建物名など
	Line2 string `gorm:"type:varchar(180)" json:"line2"`

	City  string `gorm:"type:varchar(120);not null" json:"city"`
	State string `gorm:"type:varchar(120)" json:"state"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20);not null;index" json:"postal_code"`

	//ISO 3166-1 alpha-2
	Country string `gorm:"type:varchar(2);not null;default:'IN'" json:"country"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
