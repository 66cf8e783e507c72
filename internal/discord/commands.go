package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"duel-bot/internal/duel"
	"duel-bot/internal/game"
	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// invocation is a decoded slash command.
type invocation struct {
	user      *model.User
	player    duel.Player
	channelID string
	options   map[string]*discordgo.ApplicationCommandInteractionDataOption
	resolved  *discordgo.ApplicationCommandInteractionDataResolved
}

// reply is the response to a command. A non-empty session means the reply shows
// that session and its message must be tracked.
type reply struct {
	data    *discordgo.InteractionResponseData
	session string
}

type commandHandler func(ctx context.Context, inv *invocation) reply

func (f *Frontend) handlers() map[string]commandHandler {
	return map[string]commandHandler{
		"duel":      f.cmdDuel,
		"games":     f.cmdGames,
		"balance":   f.cmdBalance,
		"daily":     f.cmdDaily,
		"top":       f.cmdTop,
		"honor":     f.cmdHonor,
		"duelstats": f.cmdDuelStats,
		"give":      f.cmdGive,
		"add":       f.cmdAdd,
		"vault":     f.cmdVault,
	}
}

func floatPtr(v float64) *float64 { return &v }

// commandDefinitions describes the slash commands. Game choices come from the catalog.
func commandDefinitions(games []game.Info) []*discordgo.ApplicationCommand {
	gameChoices := []*discordgo.ApplicationCommandOptionChoice{{Name: "🎲 Random", Value: game.RandomID}}
	for _, g := range games {
		gameChoices = append(gameChoices, &discordgo.ApplicationCommandOptionChoice{Name: g.Emoji + " " + g.Name, Value: g.ID})
	}
	aiChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 3)
	for _, d := range game.Difficulties() {
		aiChoices = append(aiChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(d), Value: string(d)})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "duel",
			Description: "Open a duel lobby in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "bet", Description: "Stake per player, 0 for a friendly duel", MinValue: floatPtr(0)},
				{Type: discordgo.ApplicationCommandOptionString, Name: "game", Description: "Game type, random when empty", Choices: gameChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "ai", Description: "Play against the AI at this difficulty", Choices: aiChoices},
			},
		},
		{Name: "games", Description: "List the duel games"},
		{Name: "balance", Description: "Show your balance"},
		{Name: "daily", Description: "Claim the daily reward"},
		{Name: "top", Description: "Richest players"},
		{Name: "honor", Description: "Friendly duel champions"},
		{Name: "duelstats", Description: "Today's duel winners and losers"},
		{
			Name:        "give",
			Description: "Give coins to another player",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Receiver", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Coins to give", Required: true, MinValue: floatPtr(1)},
			},
		},
		{
			Name:        "add",
			Description: "Admin: add or remove coins",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Account to adjust", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Coins, negative to remove", Required: true},
			},
		},
		{Name: "vault", Description: "Admin: show the collected duel tax"},
	}
}

// adminCommands may only be run by configured admins.
var adminCommands = map[string]bool{"add": true, "vault": true}

// onCommand decodes a slash command, runs its handler and responds.
func (f *Frontend) onCommand(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	handler, ok := f.commands[data.Name]
	if !ok {
		respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, ephemeral("❌ Unknown command"))
		return
	}

	inv, err := f.decode(ctx, i, data)
	if err != nil {
		log.Error().Err(err).Str("command", data.Name).Msg("Failed to load invoking user")
		respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, ephemeral(duel.UserMessage(err)))
		return
	}
	log.Debug().Str("user_id", inv.user.UserID).Str("command", data.Name).Msg("Received slash command")

	if adminCommands[data.Name] && !f.cfg.IsAdmin(inv.user.UserID) {
		log.Warn().Str("user_id", inv.user.UserID).Str("command", data.Name).Msg("Non-admin attempted admin command")
		respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, ephemeral("❌ Permission denied: admins only"))
		return
	}

	out := handler(ctx, inv)
	respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, out.data)

	if out.session != "" {
		msg, err := s.InteractionResponse(i)
		if err != nil {
			log.Error().Err(err).Str("session", out.session).Msg("Failed to fetch lobby message")
			return
		}
		f.remember(out.session, messageRef{ChannelID: msg.ChannelID, MessageID: msg.ID})
	}
}

func (f *Frontend) decode(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) (*invocation, error) {
	u, name := interactionUser(i)
	if u == nil {
		return nil, errors.New("interaction has no user")
	}
	user, _, err := f.accounts.EnsureUser(ctx, UserID(u), name)
	if err != nil {
		return nil, err
	}
	inv := &invocation{
		user:      user,
		player:    duel.Player{ID: user.UserID, Name: name},
		channelID: i.ChannelID,
		options:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
		resolved:  data.Resolved,
	}
	for _, opt := range data.Options {
		inv.options[opt.Name] = opt
	}
	return inv, nil
}

func (inv *invocation) intOption(name string) (int64, bool) {
	opt, ok := inv.options[name]
	if !ok {
		return 0, false
	}
	return opt.IntValue(), true
}

func (inv *invocation) stringOption(name string) string {
	opt, ok := inv.options[name]
	if !ok {
		return ""
	}
	return opt.StringValue()
}

// userOption returns the ledger id and display name of a user option.
func (inv *invocation) userOption(name string) (string, string, bool) {
	opt, ok := inv.options[name]
	if !ok {
		return "", "", false
	}
	u := opt.UserValue(nil)
	label := "<@" + u.ID + ">"
	if inv.resolved != nil {
		if full, ok := inv.resolved.Users[u.ID]; ok {
			label = displayName(full)
		}
	}
	return UserID(u), label, true
}

func (f *Frontend) cmdDuel(ctx context.Context, inv *invocation) reply {
	req := duel.LobbyRequest{
		Host:     inv.player,
		GameType: inv.stringOption("game"),
		Origin:   Origin,
		Channel:  inv.channelID,
	}
	req.Bet, _ = inv.intOption("bet")
	if ai := inv.stringOption("ai"); ai != "" {
		d, ok := game.ParseDifficulty(ai)
		if !ok {
			return reply{data: ephemeral("❌ Unknown difficulty " + ai)}
		}
		req.Opponent = d
	}

	snap, err := f.engine.CreateLobby(ctx, req)
	if err != nil {
		return reply{data: ephemeral(duel.UserMessage(err))}
	}
	return reply{data: sessionMessage(snap.View), session: snap.Key}
}

func (f *Frontend) cmdGames(_ context.Context, _ *invocation) reply {
	embed := &discordgo.MessageEmbed{Title: "🎮 Games", Color: 0x5865F2}
	for _, g := range f.engine.Catalog().List() {
		embed.Fields = append(embed.Fields, catalogField(g))
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "/duel opens a lobby · 🤖 games accept an AI opponent"}
	return reply{data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}}
}

func catalogField(g game.Info) *discordgo.MessageEmbedField {
	players := fmt.Sprintf("%d players", g.MinPlayers)
	if g.MaxPlayers != g.MinPlayers {
		players = fmt.Sprintf("%d-%d players", g.MinPlayers, g.MaxPlayers)
	}
	if g.AIReady {
		players += " · 🤖"
	}
	return &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("%s %s (`%s`)", g.Emoji, g.Name, g.ID),
		Value: players + "\n" + g.Rules,
	}
}

func (f *Frontend) cmdBalance(_ context.Context, inv *invocation) reply {
	return reply{data: ephemeral(fmt.Sprintf("💰 Balance: %d coins\n🎖️ Honor: %d", inv.user.Balance, inv.user.Honor))}
}

func (f *Frontend) cmdDaily(ctx context.Context, inv *invocation) reply {
	balance, remaining, err := f.accounts.ClaimDaily(ctx, inv.user.UserID)
	if errors.Is(err, service.ErrDailyAlreadyClaimed) {
		return reply{data: ephemeral(fmt.Sprintf("⏰ Already claimed, come back in %s", remaining.Round(time.Minute)))}
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", inv.user.UserID).Msg("Daily claim failed")
		return reply{data: ephemeral("❌ Could not claim the daily reward, please try again later")}
	}
	return reply{data: public(fmt.Sprintf("✅ %s claimed +%d coins! Balance: %d", inv.player.Name, f.accounts.DailyReward(), balance))}
}

func (f *Frontend) cmdTop(ctx context.Context, _ *invocation) reply {
	users, err := f.accounts.GetTopUsers(ctx, 10)
	if err != nil {
		return reply{data: ephemeral("❌ Could not load the leaderboard, please try again later")}
	}
	return reply{data: public(leaderboard("🏆 Richest TOP 10", users, func(u *model.User) int64 { return u.Balance }))}
}

func (f *Frontend) cmdHonor(ctx context.Context, _ *invocation) reply {
	users, err := f.accounts.GetTopHonor(ctx, 10)
	if err != nil {
		return reply{data: ephemeral("❌ Could not load the leaderboard, please try again later")}
	}
	return reply{data: public(leaderboard("🎖️ Honor TOP 10", users, func(u *model.User) int64 { return u.Honor }))}
}

func (f *Frontend) cmdDuelStats(ctx context.Context, _ *invocation) reply {
	winners, err := f.ranking.GetDailyWinners(ctx, 10)
	if err != nil {
		return reply{data: ephemeral("❌ Could not load today's rankings, please try again later")}
	}
	losers, err := f.ranking.GetDailyLosers(ctx, 10)
	if err != nil {
		return reply{data: ephemeral("❌ Could not load today's rankings, please try again later")}
	}
	return reply{data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{dailyEmbed(winners, losers)}}}
}

func dailyEmbed(winners, losers []*model.DailyRank) *discordgo.MessageEmbed {
	lines := func(ranks []*model.DailyRank) string {
		if len(ranks) == 0 {
			return "No data yet"
		}
		var sb strings.Builder
		for i, r := range ranks {
			name := r.Username
			if name == "" {
				name = r.UserID
			}
			fmt.Fprintf(&sb, "%d. %s: %+d\n", i+1, name, r.NetProfit)
		}
		return sb.String()
	}
	return &discordgo.MessageEmbed{
		Title: "📊 Today's duels",
		Color: 0xF1C40F,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏆 Winners", Value: lines(winners), Inline: true},
			{Name: "😢 Losers", Value: lines(losers), Inline: true},
		},
	}
}

func (f *Frontend) cmdGive(ctx context.Context, inv *invocation) reply {
	targetID, targetName, ok := inv.userOption("user")
	amount, hasAmount := inv.intOption("amount")
	if !ok || !hasAmount {
		return reply{data: ephemeral("❌ Usage: /give user amount")}
	}

	err := f.transfers.Transfer(ctx, inv.user.UserID, targetID, amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return reply{data: ephemeral("❌ The amount must be positive")}
	case errors.Is(err, service.ErrSelfTransfer):
		return reply{data: ephemeral("❌ You cannot give coins to yourself")}
	case errors.Is(err, model.ErrInsufficientFunds):
		return reply{data: ephemeral("❌ Insufficient balance")}
	case errors.Is(err, model.ErrUserNotFound):
		return reply{data: ephemeral("❌ " + targetName + " has no account yet, they need to use the bot first")}
	case err != nil:
		log.Error().Err(err).Str("from", inv.user.UserID).Str("to", targetID).Msg("Transfer failed")
		return reply{data: ephemeral("❌ Transfer failed, please try again later")}
	}
	return reply{data: public(fmt.Sprintf("✅ %s sent %d coins to %s", inv.player.Name, amount, targetName))}
}

func (f *Frontend) cmdAdd(ctx context.Context, inv *invocation) reply {
	targetID, targetName, ok := inv.userOption("user")
	amount, hasAmount := inv.intOption("amount")
	if !ok || !hasAmount {
		return reply{data: ephemeral("❌ Usage: /add user amount")}
	}

	balance, err := f.accounts.AdminAdd(ctx, inv.user.UserID, targetID, amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return reply{data: ephemeral("❌ The amount must not be zero")}
	case errors.Is(err, model.ErrUserNotFound):
		return reply{data: ephemeral("❌ User not found")}
	case errors.Is(err, model.ErrInsufficientFunds):
		return reply{data: ephemeral("❌ The user does not have that much")}
	case err != nil:
		log.Error().Err(err).Str("target_id", targetID).Msg("Admin adjustment failed")
		return reply{data: ephemeral("❌ Operation failed")}
	}
	return reply{data: ephemeral(fmt.Sprintf("✅ %s %+d, balance %d", targetName, amount, balance))}
}

func (f *Frontend) cmdVault(ctx context.Context, _ *invocation) reply {
	balance, err := f.accounts.VaultBalance(ctx)
	if err != nil {
		return reply{data: ephemeral("❌ Could not read the vault")}
	}
	return reply{data: ephemeral(fmt.Sprintf("🏦 Vault: %d coins", balance))}
}

func leaderboard(title string, users []*model.User, score func(*model.User) int64) string {
	if len(users) == 0 {
		return "📊 No rankings yet"
	}
	var sb strings.Builder
	sb.WriteString("**" + title + "**\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, u := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		name := u.Username
		if name == "" {
			name = u.UserID
		}
		fmt.Fprintf(&sb, "%s %s: %d\n", rank, name, score(u))
	}
	return sb.String()
}

// commandNeedsUpdate reports whether a registered command differs from its definition.
func commandNeedsUpdate(existing, desired *discordgo.ApplicationCommand) bool {
	if existing.Description != desired.Description || len(existing.Options) != len(desired.Options) {
		return true
	}
	for i, option := range existing.Options {
		want := desired.Options[i]
		if option.Name != want.Name ||
			option.Description != want.Description ||
			option.Type != want.Type ||
			option.Required != want.Required ||
			len(option.Choices) != len(want.Choices) {
			return true
		}
		for j, choice := range option.Choices {
			if choice.Name != want.Choices[j].Name || fmt.Sprint(choice.Value) != fmt.Sprint(want.Choices[j].Value) {
				return true
			}
		}
	}
	return false
}

// commandAPI is the part of *discordgo.Session used to manage slash commands.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// syncCommands creates, updates and deletes slash commands until the registered set
// matches desired.
func syncCommands(s *discordgo.Session, guildID string, desired []*discordgo.ApplicationCommand) error {
	return syncCommandsAs(s, s.State.User.ID, guildID, desired)
}

func syncCommandsAs(api commandAPI, appID, guildID string, desired []*discordgo.ApplicationCommand) error {
	existing, err := api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("failed to fetch existing commands: %w", err)
	}

	byName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		byName[cmd.Name] = cmd
	}

	var errs []error
	for _, want := range desired {
		have, ok := byName[want.Name]
		delete(byName, want.Name)
		switch {
		case !ok:
			log.Info().Str("command", want.Name).Msg("Creating slash command")
			if _, err := api.ApplicationCommandCreate(appID, guildID, want); err != nil {
				errs = append(errs, fmt.Errorf("create %s: %w", want.Name, err))
			}
		case commandNeedsUpdate(have, want):
			log.Info().Str("command", want.Name).Msg("Updating slash command")
			if _, err := api.ApplicationCommandEdit(appID, guildID, have.ID, want); err != nil {
				errs = append(errs, fmt.Errorf("update %s: %w", want.Name, err))
			}
		}
	}

	for _, stale := range byName {
		log.Info().Str("command", stale.Name).Msg("Deleting unused slash command")
		if err := api.ApplicationCommandDelete(appID, guildID, stale.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", stale.Name, err))
		}
	}
	return errors.Join(errs...)
}
