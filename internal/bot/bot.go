// Package bot wires the Telegram frontend: bot initialization, middleware and
// handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/config"
	"duel-bot/internal/duel"
	"duel-bot/internal/handler"
	"duel-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	accountHandler  *handler.AccountHandler
	transferHandler *handler.TransferHandler
	adminHandler    *handler.AdminHandler
	rankingHandler  *handler.RankingHandler
	duelHandler     *handler.DuelHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	TransferService *service.TransferService
	RankingService  *service.RankingService
	Engine          *duel.Engine
	// Offline skips the getMe call; used by tests.
	Offline bool
}

// New creates a new Bot instance and registers it as the presenter of Telegram sessions.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	pref := tele.Settings{
		Token:   deps.Config.Telegram.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: deps.Offline,
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Str("text", c.Text()).Msg("Telegram handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.RankingService)
	b.transferHandler = handler.NewTransferHandler(deps.AccountService, deps.TransferService)
	b.adminHandler = handler.NewAdminHandler(deps.AccountService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.duelHandler = handler.NewDuelHandler(deps.Engine, deps.AccountService, teleBot)

	deps.Engine.RegisterPresenter(handler.Origin, b.duelHandler)

	// Register middleware
	b.registerMiddleware()

	// Register handlers
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())

	// Whitelist middleware - check if chat is allowed
	b.bot.Use(WhitelistMiddleware(b.cfg))

	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/my", b.accountHandler.HandleMy)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/honor", b.accountHandler.HandleHonor)

	// Transfer handler
	b.bot.Handle("/give", b.transferHandler.HandleGive)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)
	adminGroup.Handle("/vault", b.adminHandler.HandleVault)

	// Ranking handler
	b.bot.Handle("/daily_top", b.rankingHandler.HandleDailyTop)

	// Duel handlers
	b.bot.Handle("/duel", b.duelHandler.HandleDuel)
	b.bot.Handle("/games", b.duelHandler.HandleGames)
	b.bot.Handle(tele.OnCallback, b.duelHandler.HandleCallback)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting Telegram bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping Telegram bot...")
	b.bot.Stop()
}
