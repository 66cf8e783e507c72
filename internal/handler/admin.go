package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	accountService *service.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountService *service.AccountService) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
	}
}

// parseAdminArgs reads "<user> <amount>", where user is a ledger id or a Telegram id.
func parseAdminArgs(c tele.Context) (string, int64, error) {
	args := c.Args()
	if len(args) < 2 {
		return "", 0, errors.New("❌ Usage: /admin_add <user_id> <amount>")
	}
	userID, ok := ParseUserArg(args[0])
	if !ok {
		return "", 0, errors.New("❌ Invalid user id")
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		return "", 0, errors.New("❌ The amount must be a positive whole number")
	}
	return userID, amount, nil
}

// HandleAdminAdd handles the /admin_add command.
// Format: /admin_add <user_id> <amount>
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, 1)
}

// HandleAdminSub handles the /admin_sub command.
// Format: /admin_sub <user_id> <amount>
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	return h.adjust(c, -1)
}

func (h *AdminHandler) adjust(c tele.Context, sign int64) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	targetID, amount, err := parseAdminArgs(c)
	if err != nil {
		return c.Reply(err.Error())
	}

	balance, err := h.accountService.AdminAdd(context.Background(), UserID(sender), targetID, sign*amount)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return c.Reply("❌ User not found")
	case errors.Is(err, model.ErrInsufficientFunds):
		return c.Reply("❌ The user does not have that much")
	case err != nil:
		log.Error().Err(err).Str("target_id", targetID).Msg("Admin adjustment failed")
		return c.Reply("❌ Operation failed")
	}

	return c.Reply(fmt.Sprintf("✅ Done\n\n👤 %s\n💱 %+d\n💰 Balance: %d", targetID, sign*amount, balance))
}

// HandleVault handles the /vault command, showing the tax collected from duels.
func (h *AdminHandler) HandleVault(c tele.Context) error {
	balance, err := h.accountService.VaultBalance(context.Background())
	if err != nil {
		return c.Reply("❌ Could not read the vault")
	}
	return c.Reply(fmt.Sprintf("🏦 Vault: %d coins", balance))
}
