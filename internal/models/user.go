package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email               string `gorm:"uniqueIndex;not null"`
	Password            string `gorm:"not null"`
	Name                string `gorm:"not null"`
	Phone               string `gorm:"uniqueIndex;not null"`
	Status              string `gorm:"default:'active'"`
	KYCLevel            int    `gorm:"default:0"`
	PinHash             string // bcrypt hash of the transaction PIN
	TwoFactorEnabled    bool   `gorm:"default:false"`
	FailedPinAttempts   int    `gorm:"default:0"`
	PinLockoutUntil     *time.Time
	TokenVersion        int `gorm:"default:1"`
	FailedLoginAttempts int `gorm:"default:0"`
}
