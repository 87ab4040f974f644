// Seeds the admin account. Idempotent: an existing admin is left alone.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"charzing/internal/config"
	"charzing/internal/database"
	"charzing/internal/domain"
	"charzing/internal/repository"

	"github.com/google/uuid"
)

func main() {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	if existing, err := users.GetByEmail(ctx, email); err == nil && existing != nil {
		logger.Info("admin already exists", zap.String("email", email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("hash password failed", zap.Error(err))
	}

	admin := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Provider:     domain.ProviderEmail,
		DisplayName:  "관리자",
	}
	if err := users.Create(ctx, admin); err != nil {
		logger.Fatal("create admin failed", zap.Error(err))
	}
	logger.Info("admin created", zap.String("email", email), zap.String("id", admin.ID))
}
