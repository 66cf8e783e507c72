// Package discord is the discordgo frontend of the duel engine: slash commands,
// button interactions and the presenter that keeps session messages current.
package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"duel-bot/internal/config"
	"duel-bot/internal/duel"
	"duel-bot/internal/service"
)

// Origin names this frontend in duel sessions and user ids.
const Origin = "discord"

// interactionTimeout bounds the work done for one interaction.
const interactionTimeout = 10 * time.Second

// messenger is the part of *discordgo.Session the presenter needs.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Dependencies holds the collaborators of the Discord frontend.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	TransferService *service.TransferService
	RankingService  *service.RankingService
	Engine          *duel.Engine
}

// Frontend connects a Discord gateway session to the engine and the ledger.
type Frontend struct {
	session   *discordgo.Session
	api       messenger
	cfg       *config.Config
	accounts  *service.AccountService
	transfers *service.TransferService
	ranking   *service.RankingService
	engine    *duel.Engine
	commands  map[string]commandHandler

	messages map[string]messageRef // session key -> message showing it
	mu       sync.Mutex
}

// messageRef locates a channel message.
type messageRef struct {
	ChannelID string
	MessageID string
}

// New creates the frontend and registers it as the presenter of Discord sessions.
// The gateway connection is opened by Open.
func New(deps *Dependencies) (*Frontend, error) {
	if deps.Config.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + deps.Config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	f := newFrontend(deps, session)
	f.session = session
	session.AddHandler(f.onInteraction)
	deps.Engine.RegisterPresenter(Origin, f)
	return f, nil
}

func newFrontend(deps *Dependencies, api messenger) *Frontend {
	f := &Frontend{
		api:       api,
		cfg:       deps.Config,
		accounts:  deps.AccountService,
		transfers: deps.TransferService,
		ranking:   deps.RankingService,
		engine:    deps.Engine,
		messages:  make(map[string]messageRef),
	}
	f.commands = f.handlers()
	return f
}

// Open connects to the gateway and synchronises the slash commands.
func (f *Frontend) Open() error {
	if err := f.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	if err := syncCommands(f.session, f.cfg.Discord.GuildID, commandDefinitions(f.engine.Catalog().List())); err != nil {
		log.Error().Err(err).Msg("Failed to register slash commands")
	}
	log.Info().Str("user", f.session.State.User.Username).Msg("Discord frontend connected")
	return nil
}

// Close disconnects from the gateway.
func (f *Frontend) Close() error {
	log.Info().Msg("Stopping Discord frontend...")
	return f.session.Close()
}

// onInteraction routes slash commands and button presses.
func (f *Frontend) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in interaction handler")
		}
	}()

	if !f.allowed(i.Interaction) {
		log.Debug().Str("guild_id", i.GuildID).Str("channel_id", i.ChannelID).Msg("Ignoring interaction from non-whitelisted guild")
		respond(s, i.Interaction, discordgo.InteractionResponseChannelMessageWithSource, ephemeral("❌ This bot is not enabled here"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		f.onCommand(ctx, s, i.Interaction)
	case discordgo.InteractionMessageComponent:
		f.onComponent(ctx, s, i.Interaction)
	}
}

// allowed applies the whitelist to the guild, or the channel for direct messages.
func (f *Frontend) allowed(i *discordgo.Interaction) bool {
	if i.GuildID != "" {
		return f.cfg.IsChatAllowed(i.GuildID)
	}
	return f.cfg.IsChatAllowed(i.ChannelID)
}

func respond(s *discordgo.Session, i *discordgo.Interaction, kind discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{Type: kind, Data: data})
	if err != nil {
		log.Error().Err(err).Str("interaction", i.ID).Msg("Failed to respond to interaction")
	}
}

// interactionUser returns the invoking user; guild interactions carry it in Member.
func interactionUser(i *discordgo.Interaction) (*discordgo.User, string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User, memberName(i.Member)
	}
	if i.User != nil {
		return i.User, displayName(i.User)
	}
	return nil, ""
}

// UserID returns the ledger id of a Discord user.
func UserID(u *discordgo.User) string {
	return Origin + ":" + u.ID
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User" + u.ID
}

func memberName(m *discordgo.Member) string {
	if nick := strings.TrimSpace(m.Nick); nick != "" {
		return nick
	}
	return displayName(m.User)
}
