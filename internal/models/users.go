package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// User — таблица users
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"` // ← никнейм (логин)
	PasswordHash string `gorm:"not null" json:"-"`

	// Денормализованный список id выставленных товаров. Пополняется при
	// создании товара, чистится при удалении.
	ProductIDs datatypes.JSONSlice[uint] `gorm:"type:jsonb" json:"product_ids"`
}

// HashPassword превращает обычный пароль в безопасный хэш
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword проверяет пароль на совпадение с хэшем
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
