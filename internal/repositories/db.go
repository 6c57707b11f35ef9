// Package repositories provides the data access layer. It owns the
// Postgres connection, the balance and transaction stores, and the Redis
// cache used for derived data.
package repositories

import (
	"log"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/config"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories/cache"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB

// CacheService is the shared Redis-backed cache.
var CacheService *cache.CacheService

// InitDB initializes the database and cache connections, applies pooling
// settings and runs migrations.
func InitDB() error {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "zeusodx") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")

	logLevel := logger.Warn
	if !config.IsProduction() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}
	DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	redisCfg := &cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	}
	CacheService = cache.NewCacheService(cache.NewRedisClient(redisCfg), 24*time.Hour)

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Balance{},
		&models.Transaction{},
	); err != nil {
		return err
	}

	log.Println("database initialized")
	return nil
}
