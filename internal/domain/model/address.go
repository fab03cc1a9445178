package model

import "time"

// Saved delivery address of a shopper.
type Address struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64  `gorm:"not null;index" json:"user_id"`
	Street   string `gorm:"type:varchar(255);not null" json:"street"`
	City     string `gorm:"type:varchar(255);not null" json:"city"`
	State    string `gorm:"type:varchar(100);not null" json:"state"`
	Landmark string `gorm:"type:varchar(255)" json:"landmark"`
	Pincode  string `gorm:"type:varchar(20);not null" json:"pincode"`

	// at most one default per user
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
