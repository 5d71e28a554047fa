package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"svmedia/internal/config"
	"svmedia/internal/domain"
	pg "svmedia/internal/infra/db/postgres"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/security"
	"svmedia/internal/usecase"
)

// create-admin provisions the first administrator, who can then create other
// users through the API.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (or ADMIN_PASSWORD)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authUC := usecase.NewAuthUseCase(pg.NewUserRepo(pool), pg.NewTxManager(pool), tokens, logging.New(cfg.Log, false))

	u, err := authUC.CreateUser(ctx, *email, *password, true)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		fmt.Printf("user %s already exists. No changes.\n", *email)
		return
	case err != nil:
		log.Fatalf("create admin: %v", err)
	}
	fmt.Printf("created admin %s (id=%s)\n", u.Email, u.ID)
}
