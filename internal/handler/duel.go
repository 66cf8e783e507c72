package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/duel"
	"duel-bot/internal/game"
	"duel-bot/internal/service"
)

// DuelHandler is the Telegram frontend of the duel engine. It owns one message per
// session and edits it whenever the session changes.
type DuelHandler struct {
	engine         *duel.Engine
	accountService *service.AccountService
	bot            *tele.Bot

	messages map[string]*tele.Message // session key -> lobby message
	mu       sync.Mutex
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(engine *duel.Engine, accountService *service.AccountService, bot *tele.Bot) *DuelHandler {
	return &DuelHandler{
		engine:         engine,
		accountService: accountService,
		bot:            bot,
		messages:       make(map[string]*tele.Message),
	}
}

// DuelArgs are the parsed arguments of /duel.
type DuelArgs struct {
	Bet      int64
	GameType string
	AI       game.Difficulty
}

// ParseDuelArgs reads "/duel [bet] [game] [easy|medium|hard]" in any order.
func ParseDuelArgs(args []string) (DuelArgs, error) {
	var out DuelArgs
	betSet := false
	for _, arg := range args {
		arg = strings.ToLower(strings.TrimSpace(arg))
		if arg == "" {
			continue
		}
		if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
			if betSet {
				return DuelArgs{}, fmt.Errorf("bet given twice")
			}
			out.Bet, betSet = n, true
			continue
		}
		if d, ok := game.ParseDifficulty(arg); ok {
			out.AI = d
			continue
		}
		if strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "+") {
			return DuelArgs{}, fmt.Errorf("bet must be a whole number")
		}
		if out.GameType != "" {
			return DuelArgs{}, fmt.Errorf("game given twice")
		}
		out.GameType = arg
	}
	return out, nil
}

const duelUsage = "Usage: /duel [bet] [game] [easy|medium|hard]\nExample: /duel 500 rps\nAdd a difficulty to play against the AI. /games lists the games."

// HandleDuel handles the /duel command, opening a lobby in the current chat.
func (h *DuelHandler) HandleDuel(c tele.Context) error {
	ctx := context.Background()
	user, err := ensureSender(ctx, h.accountService, c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load duel host")
		return c.Reply(duel.UserMessage(err))
	}

	args, err := ParseDuelArgs(c.Args())
	if err != nil {
		return c.Reply("❌ " + capitalizeFirst(err.Error()) + "\n\n" + duelUsage)
	}

	snap, err := h.engine.CreateLobby(ctx, duel.LobbyRequest{
		Host:     duel.Player{ID: user.UserID, Name: DisplayName(c.Sender())},
		Bet:      args.Bet,
		GameType: args.GameType,
		Opponent: args.AI,
		Origin:   Origin,
		Channel:  ChatID(c.Chat()),
	})
	if err != nil {
		return c.Reply(duel.UserMessage(err))
	}

	msg, err := h.bot.Send(c.Chat(), snap.View.Text(), Markup(snap.View))
	if err != nil {
		log.Error().Err(err).Str("session", snap.Key).Msg("Failed to send lobby message")
		return err
	}
	h.remember(snap.Key, msg)
	return nil
}

// HandleGames handles the /games command.
func (h *DuelHandler) HandleGames(c tele.Context) error {
	return c.Reply(FormatCatalog(h.engine.Catalog().List()))
}

// FormatCatalog lists the game types with their player range.
func FormatCatalog(games []game.Info) string {
	var sb strings.Builder
	sb.WriteString("🎮 Games\n━━━━━━━━━━━━━━━\n")
	for _, g := range games {
		players := fmt.Sprintf("%d", g.MinPlayers)
		if g.MaxPlayers != g.MinPlayers {
			players = fmt.Sprintf("%d-%d", g.MinPlayers, g.MaxPlayers)
		}
		ai := ""
		if g.AIReady {
			ai = " · 🤖"
		}
		fmt.Fprintf(&sb, "%s %s (%s) · %s players%s\n", g.Emoji, g.Name, g.ID, players, ai)
	}
	sb.WriteString("━━━━━━━━━━━━━━━\n/duel <bet> <game> opens a lobby, 🤖 games accept easy|medium|hard")
	return sb.String()
}

// HandleCallback routes inline button presses to the engine.
func (h *DuelHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	action, err := duel.ParseCallback(strings.TrimPrefix(cb.Data, "\f"))
	if err != nil {
		// Not ours; answer so the client stops the spinner.
		return c.Respond()
	}

	ctx := context.Background()
	user, err := ensureSender(ctx, h.accountService, c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: duel.UserMessage(err), ShowAlert: true})
	}

	snap, err := h.engine.Handle(ctx, action, duel.Player{ID: user.UserID, Name: DisplayName(c.Sender())})
	if err != nil {
		if !isUserError(err) {
			log.Error().Err(err).Str("session", action.Key).Str("op", string(action.Op)).Msg("Duel action failed")
		}
		return c.Respond(&tele.CallbackResponse{Text: duel.UserMessage(err), ShowAlert: true})
	}

	if cb.Message != nil {
		h.remember(snap.Key, cb.Message)
	}
	if err := c.Edit(snap.View.Text(), Markup(snap.View)); err != nil && !notModified(err) {
		log.Warn().Err(err).Str("session", snap.Key).Msg("Failed to edit duel message")
	}
	if snap.Deleted {
		h.forget(snap.Key)
	}
	return c.Respond()
}

// Present implements duel.Presenter for changes nobody clicked: timeouts,
// countdowns and AI moves.
func (h *DuelHandler) Present(_ context.Context, snap *duel.Snapshot) error {
	h.mu.Lock()
	msg, ok := h.messages[snap.Key]
	h.mu.Unlock()

	if snap.Deleted {
		h.forget(snap.Key)
	}

	if !ok {
		chatID, err := strconv.ParseInt(snap.Channel, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid channel %q: %w", snap.Channel, err)
		}
		sent, err := h.bot.Send(tele.ChatID(chatID), snap.View.Text(), Markup(snap.View))
		if err != nil {
			return err
		}
		if !snap.Deleted {
			h.remember(snap.Key, sent)
		}
		return nil
	}

	if _, err := h.bot.Edit(msg, snap.View.Text(), Markup(snap.View)); err != nil && !notModified(err) {
		return err
	}
	return nil
}

func (h *DuelHandler) remember(key string, msg *tele.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[key] = msg
}

func (h *DuelHandler) forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, key)
}

// Markup converts the view's buttons to an inline keyboard. Telegram cannot grey
// out a button, so disabled ones are shown as-is and the engine rejects the press.
func Markup(v duel.View) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(v.Buttons))
	for _, row := range v.Buttons {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tele.InlineButton{Text: b.Label, Data: b.ID})
		}
		if len(buttons) > 0 {
			rows = append(rows, buttons)
		}
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func notModified(err error) bool {
	return errors.Is(err, tele.ErrSameMessageContent) || errors.Is(err, tele.ErrMessageNotModified)
}

// isUserError reports whether err is a rejection the player caused.
func isUserError(err error) bool {
	for _, target := range []error{
		duel.ErrSessionNotFound, duel.ErrNotInLobby, duel.ErrLobbyFull, duel.ErrAlreadyJoined,
		duel.ErrNotAPlayer, duel.ErrNotHost, duel.ErrLobbyNotEmpty, duel.ErrNotEnoughPlayers,
		duel.ErrNoCompatibleGame, duel.ErrPlayerCountUnsupported, duel.ErrInvalidBet, duel.ErrBetTooLow,
		duel.ErrAIBetNotAllowed, duel.ErrGameNotAIReady, duel.ErrNotPlaying, duel.ErrNotYourTurn,
		duel.ErrAlreadyActed, duel.ErrNotEnded, duel.ErrBadCallback, duel.ErrBusy,
		duel.ErrInsufficientFunds, duel.ErrUnknownGame, game.ErrIllegalMove,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
