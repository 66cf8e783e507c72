package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"duel-bot/internal/model"
	"duel-bot/internal/service"
)

// Origin names this frontend in duel sessions and user ids.
const Origin = "telegram"

// UserID returns the ledger id of a Telegram user.
func UserID(u *tele.User) string {
	return fmt.Sprintf("%s:%d", Origin, u.ID)
}

// ChatID returns the whitelist id of a chat.
func ChatID(c *tele.Chat) string {
	return strconv.FormatInt(c.ID, 10)
}

// DisplayName prefers the @username, falling back to the first name.
func DisplayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("User%d", u.ID)
}

// ParseUserArg accepts "telegram:123", "discord:456" or a bare Telegram numeric id.
func ParseUserArg(arg string) (string, bool) {
	if strings.Contains(arg, ":") {
		return arg, true
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", Origin, id), true
}

// ensureSender creates the account of the message sender on first contact.
func ensureSender(ctx context.Context, accounts *service.AccountService, c tele.Context) (*model.User, error) {
	sender := c.Sender()
	if sender == nil {
		return nil, fmt.Errorf("update has no sender")
	}
	user, _, err := accounts.EnsureUser(ctx, UserID(sender), DisplayName(sender))
	return user, err
}

// shownName is the name to print for a ledger user.
func shownName(u *model.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.UserID
}
