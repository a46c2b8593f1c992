package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"

	"github.com/harveywai/thermopanel/pkg/api"
	"github.com/harveywai/thermopanel/pkg/auth"
	"github.com/harveywai/thermopanel/pkg/config"
	"github.com/harveywai/thermopanel/pkg/database"
	"github.com/harveywai/thermopanel/pkg/logger"
	"github.com/harveywai/thermopanel/pkg/notify"
	"github.com/harveywai/thermopanel/pkg/security"
	"github.com/harveywai/thermopanel/pkg/simulate"
)

func main() {
	cfg, err := config.Load(os.Getenv("THERMOPANEL_CONFIG"))
	if err != nil {
		color.Red("failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection and run migrations.
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	seeds := make([]database.SeedUser, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		seeds = append(seeds, database.SeedUser{Username: u.Username, Password: u.Password, Role: u.Role})
	}
	if err := database.SeedUsers(db, seeds, log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed users")
	}
	if err := database.SeedThermostat(db, log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default thermostat")
	}

	if cfg.JWTSecret == "" {
		log.Warn().Msg("THERMOPANEL_JWT_SECRET is not set, using the built-in development secret")
	}

	srv := api.New(
		db,
		security.NewStore(cfg.Security),
		auth.NewSigner(cfg.JWTSecret, cfg.SessionTTL),
		simulate.New(),
		notify.New(cfg.AlertWebhookURL, log),
		api.Options{
			AllowedIPs:     cfg.AllowedIPs,
			TrustedProxies: cfg.TrustedProxies,
			RateLimit:      cfg.RateLimit.RequestsPerSecond,
			RateBurst:      cfg.RateLimit.Burst,
			SecureCookie:   cfg.SecureCookie,
		},
		log,
	)

	color.Cyan("Thermostat panel backend listening on %s", cfg.Listen)
	printSettings(cfg.Security)

	if err := srv.Router().Run(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func printSettings(s security.Settings) {
	state := func(on bool) string {
		if on {
			return color.GreenString("on")
		}
		return color.RedString("off")
	}
	color.White("  acl: %s | login_validation: %s | dos_protection: %s",
		state(s.ACL), state(s.LoginValidation), state(s.DosProtection))
}
