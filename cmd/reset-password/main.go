package main

import (
	"context"
	"flag"

	"toko-beras-pos/internal/config"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/pkg/database"
	"toko-beras-pos/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 1. Load Env
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, "text")
	if envErr != nil {
		log.Info(".env file not found, relying on system env")
	}

	email := flag.String("email", cfg.SeedAdminEmail, "account to reset")
	newPassword := flag.String("password", "", "new password (min 6 characters)")
	flag.Parse()

	if len(*newPassword) < 6 {
		log.Fatal("-password must be at least 6 characters")
	}

	// 2. Setup Database
	db := database.MustConnect(cfg.DSN(), log)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find account
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.WithError(err).WithField("email", *email).Fatal("user not found")
	}

	// 4. Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}

	// 5. Update, and end every open session
	if err := users.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		log.WithError(err).Fatal("failed to update password")
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		log.WithError(err).Fatal("failed to invalidate sessions")
	}

	log.WithField("email", user.Email).Info("password reset")
}
