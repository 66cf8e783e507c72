// Package main is the entry point of the duel bot.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"duel-bot/internal/bot"
	"duel-bot/internal/config"
	"duel-bot/internal/discord"
	"duel-bot/internal/duel"
	"duel-bot/internal/game/catalog"
	"duel-bot/internal/pkg/db"
	"duel-bot/internal/pkg/lock"
	"duel-bot/internal/repository"
	"duel-bot/internal/service"
)

// shutdownTimeout bounds the refund of in-flight duels on exit.
const shutdownTimeout = 15 * time.Second

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// A missing .env is fine; the environment and config.yaml still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Discord.Token == "" && cfg.Telegram.Token == "" {
		log.Fatal().Msg("No frontend configured: set DISCORD_TOKEN and/or TELEGRAM_TOKEN")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	vaultRepo := repository.NewVaultRepository(dbPool.Pool)

	// Initialize services
	accountService := service.NewAccountService(
		userRepo,
		txRepo,
		vaultRepo,
		lock.NewKeyedLock(),
		cfg.Daily.Reward,
		cfg.Daily.CooldownHours,
	)
	transferService := service.NewTransferService(accountService, userRepo)
	rankingService := service.NewRankingService(txRepo, time.Local)

	games, err := catalog.New(cfg.Games)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build game catalog")
	}
	log.Info().Int("game_count", games.Count()).Msg("Games registered")

	engine := duel.NewEngine(cfg.Duel, games, accountService)

	var discordFrontend *discord.Frontend
	if cfg.Discord.Token != "" {
		discordFrontend, err = discord.New(&discord.Dependencies{
			Config:          cfg,
			AccountService:  accountService,
			TransferService: transferService,
			RankingService:  rankingService,
			Engine:          engine,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Discord frontend")
		}
		if err := discordFrontend.Open(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Discord")
		}
	}

	var telegramBot *bot.Bot
	if cfg.Telegram.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:          cfg,
			AccountService:  accountService,
			TransferService: transferService,
			RankingService:  rankingService,
			Engine:          engine,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram bot")
		}
		go telegramBot.Start()
	}

	// Run returns after refunding open duels once ctx is cancelled
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Duel engine stopped")
		}
	}()

	log.Info().Msg("Bot is running")
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	// Stop taking new interactions before the engine refunds what is open
	if telegramBot != nil {
		telegramBot.Stop()
	}
	select {
	case <-engineDone:
	case <-time.After(shutdownTimeout):
		log.Warn().Msg("Timed out waiting for duel refunds")
	}
	if discordFrontend != nil {
		if err := discordFrontend.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Discord session")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}
