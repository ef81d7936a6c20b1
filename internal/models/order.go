package models

// Order — таблица orders, запись о покупке
//
// The listing itself is removed from the catalog when bought; the order row
// keeps a snapshot of what was paid for.
type Order struct {
	Base
	BuyerID     uint   `gorm:"index;not null" json:"buyer_id"`
	SellerID    uint   `gorm:"index;not null" json:"seller_id"`
	ProductID   uint   `gorm:"not null" json:"product_id"`
	ProductName string `gorm:"not null" json:"product_name"`
	PriceCents  int    `gorm:"not null" json:"price_cents"`
}
