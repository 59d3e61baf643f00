package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/jazzyauth/internal/authctl"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/flagx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/auth"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
	"golang.org/x/crypto/bcrypt"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	database := dbx.SQLDatabase{DB: db}
	codec := auth.NewTokenCodec(cfg.SecretKey)
	tokens := services.NewTokenService(database, m, cfg, codec, logger)
	clients := services.NewClientService(database, m, auth.NewPasswordHasher(bcrypt.DefaultCost), codec, tokens, logger)

	// Config flags share os.Args with the command name.
	args := flagx.Positional(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-r", "-o", "-l", "-c", "-config"})

	app := authctl.NewApp(clients, tokens, os.Stdin, os.Stdout)
	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}
}
