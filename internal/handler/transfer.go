package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// TransferHandler handles transfer-related commands.
type TransferHandler struct {
	accountService  *service.AccountService
	transferService *service.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(accountService *service.AccountService, transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		accountService:  accountService,
		transferService: transferService,
	}
}

const giveUsage = "❌ Usage: reply to a message with /give <amount>, or /give @user <amount>"

// giveTarget resolves the receiver of /give: the replied-to sender, a mentioned user,
// or an explicit ledger id. It returns the remaining arguments.
func giveTarget(c tele.Context) (id, name string, rest []string, ok bool) {
	args := c.Args()
	msg := c.Message()

	if msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		return UserID(msg.ReplyTo.Sender), DisplayName(msg.ReplyTo.Sender), args, true
	}
	if len(args) < 2 {
		return "", "", nil, false
	}

	if msg != nil {
		target := strings.TrimPrefix(args[0], "@")
		for _, entity := range msg.Entities {
			if entity.User == nil {
				continue
			}
			if entity.Type == tele.EntityTMention || entity.User.Username == target {
				return UserID(entity.User), DisplayName(entity.User), args[1:], true
			}
		}
	}
	if id, ok := ParseUserArg(args[0]); ok {
		return id, args[0], args[1:], true
	}
	return "", "", nil, false
}

// HandleGive handles the /give command.
func (h *TransferHandler) HandleGive(c tele.Context) error {
	ctx := context.Background()
	sender, err := ensureSender(ctx, h.accountService, c)
	if err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	targetID, targetName, rest, ok := giveTarget(c)
	if !ok || len(rest) < 1 {
		return c.Reply(giveUsage)
	}
	amount, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return c.Reply("❌ The amount must be a whole number")
	}

	err = h.transferService.Transfer(ctx, sender.UserID, targetID, amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return c.Reply("❌ The amount must be positive")
	case errors.Is(err, service.ErrSelfTransfer):
		return c.Reply("❌ You cannot give coins to yourself")
	case errors.Is(err, model.ErrInsufficientFunds):
		return c.Reply("❌ Insufficient balance")
	case errors.Is(err, model.ErrUserNotFound):
		return c.Reply("❌ " + targetName + " has no account yet, they need to use the bot first")
	case err != nil:
		return c.Reply("❌ Transfer failed, please try again later")
	}

	balance, _ := h.accountService.Balance(ctx, sender.UserID)
	return c.Reply(fmt.Sprintf("✅ Sent %d coins to %s\n💰 Balance: %d", amount, targetName, balance))
}
