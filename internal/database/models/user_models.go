package models

import "time"

type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	FullName    string    `gorm:"type:varchar(128)" json:"full_name"`
	Role        string    `gorm:"type:varchar(16);not null;default:'staff'" json:"role"`
	TOTPSecret  *string   `gorm:"type:varchar(64)" json:"-"`
	TOTPEnabled bool      `gorm:"not null;default:false" json:"totp_enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RevokedToken holds signed-out tokens until their natural expiry.
// Rows are purged by the ledger sweep, not on a timer.
type RevokedToken struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Token     string `gorm:"type:text;uniqueIndex;not null"`
	UserID    int64  `gorm:"index;not null"`
	CreatedAt time.Time
}
