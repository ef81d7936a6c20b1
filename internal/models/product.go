package models

import "gorm.io/datatypes"

// GameRating — вложенная оценка игрового аккаунта
type GameRating struct {
	Rating      int    `json:"rating"`
	Description string `json:"description"`
}

// Product — таблица products
type Product struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Price       int    `gorm:"not null" json:"price"` // minor units (cents)
	Description string `gorm:"type:text" json:"description"`
	Tags        string `gorm:"type:text" json:"tags"` // space-delimited tokens
	MainImg     string `json:"main_img"`

	GameRating datatypes.JSONType[GameRating] `gorm:"type:jsonb" json:"game_rating"`

	UserID uint `gorm:"index;not null" json:"id_user"`

	// Purchase-contact snapshot copied from the owner at create/rework time.
	// Kept for compatibility with the existing API; storing credentials
	// outside the users table is a known defect of this schema.
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"`

	Images []Image `gorm:"constraint:OnDelete:CASCADE" json:"images"`
}

// Image — таблица images, картинки товара
type Image struct {
	Base
	Path        string `gorm:"not null" json:"path"`
	Description string `json:"description"`
	ProductID   uint   `gorm:"index;not null" json:"product_id"`
}
