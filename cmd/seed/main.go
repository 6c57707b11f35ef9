// Package main seeds a verified demo user with a transaction PIN and
// starting balances, for local development.
package main

import (
	"log"
	"os"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/config"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/twofactor"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	phone := os.Getenv("SEED_PHONE")
	pin := config.GetEnv("SEED_PIN", "1234")

	if email == "" || password == "" || phone == "" {
		log.Fatal("SEED_EMAIL, SEED_PASSWORD and SEED_PHONE must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err == nil {
				sqlDB.Close()
			}
		}
		if repositories.CacheService != nil {
			repositories.CacheService.Close()
		}
	}()

	var existing models.User
	if err := repositories.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Println("Seed user already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}
	pinHash, err := twofactor.HashPin(pin)
	if err != nil {
		log.Fatal("Failed to hash PIN:", err)
	}

	user := models.User{
		Email:        email,
		Password:     string(hashedPassword),
		Name:         "Seed User",
		Phone:        phone,
		KYCLevel:     2,
		PinHash:      pinHash,
		TokenVersion: 1,
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		log.Fatal("Failed to create seed user:", err)
	}

	for currency, amount := range map[string]int64{
		"USDT": 10_000,
		"BTC":  1,
		"NGN":  5_000_000,
	} {
		balance := models.Balance{
			UserID:    user.ID,
			Currency:  currency,
			Available: decimal.NewFromInt(amount),
			Pending:   decimal.Zero,
		}
		if err := repositories.DB.Create(&balance).Error; err != nil {
			log.Fatal("Failed to create balance:", err)
		}
	}

	log.Println("Seed account created successfully")
}
