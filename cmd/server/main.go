package main

import (
	"log"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"skippy.dog/server/internal/config"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/server"
	"skippy.dog/server/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := seedDemoUsers(db); err != nil {
			log.Fatalf("failed to seed demo users: %v", err)
		}
	}

	redisClient := connectRedis(cfg)

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Shutdown()

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Availability{},
		&model.Conversation{},
		&model.Message{},
		&model.Meeting{},
	)
}

func seedDemoUsers(db *gorm.DB) error {
	demos := []struct {
		email     string
		firstName string
		lastName  string
		dogName   string
	}{
		{"ada@skippy.dog", "Ada", "Barker", "Biscuit"},
		{"finn@skippy.dog", "Finn", "Walker", "Pepper"},
	}

	for _, demo := range demos {
		var count int64
		if err := db.Model(&model.User{}).
			Where("email = ?", demo.email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := model.User{Email: demo.email, PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			return err
		}

		profile := model.Profile{
			UserID:    user.ID,
			FirstName: demo.firstName,
			LastName:  demo.lastName,
			DogName:   &demo.dogName,
		}
		if err := db.Create(&profile).Error; err != nil {
			return err
		}

		log.Printf("✅ Seeded demo user %s (password: password123)", demo.email)
	}

	return nil
}

// connectRedis returns nil when REDIS_URL is unset; realtime delivery and rate
// limiting degrade gracefully without it.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL is not set, realtime events and rate limiting are disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}

	return redis.NewClient(opts)
}
