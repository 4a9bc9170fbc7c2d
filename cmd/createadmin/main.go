package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"sathi/internal/config"
	"sathi/internal/db"
	"sathi/internal/domain/users"

	"go.uber.org/zap"
)

// createadmin seeds an admin account for the dashboard. The password is
// read from ADMIN_PASSWORD so it stays out of shell history.
func main() {
	email := flag.String("email", "", "admin email")
	first := flag.String("first", "Sathi", "first name")
	last := flag.String("last", "Admin", "last name")
	flag.Parse()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	password := os.Getenv("ADMIN_PASSWORD")
	if strings.TrimSpace(*email) == "" || len(password) < 8 {
		logger.Fatal("usage: ADMIN_PASSWORD=<at least 8 chars> createadmin -email admin@example.org")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}

	pool, err := db.New(context.Background(), cfg.DB.Addr, 2, "1m")
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()

	u := &users.User{
		FirstName: *first,
		LastName:  *last,
		Email:     strings.ToLower(strings.TrimSpace(*email)),
		Role:      users.RoleAdmin,
	}
	if err := u.Password.Set(password); err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := users.NewRepository(pool).Create(ctx, u); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			logger.Infow("admin already exists", "email", u.Email)
			return
		}
		logger.Fatal(err)
	}
	logger.Infow("admin created", "id", u.ID, "email", u.Email)
}
