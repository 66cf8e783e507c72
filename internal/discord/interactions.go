package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"duel-bot/internal/duel"
	"duel-bot/internal/game"
)

// onComponent handles a duel button press and updates the message in place.
// Rejections are answered privately and leave the message untouched.
func (f *Frontend) onComponent(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	action, err := duel.ParseCallback(i.MessageComponentData().CustomID)
	if err != nil {
		respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, ephemeral(duel.UserMessage(err)))
		return
	}

	snap, err := f.press(ctx, i, action)
	if err != nil {
		if !isUserError(err) {
			log.Error().Err(err).Str("session", action.Key).Str("op", string(action.Op)).Msg("Duel action failed")
		}
		respond(s, i, discordgo.InteractionResponseChannelMessageWithSource, ephemeral(duel.UserMessage(err)))
		return
	}

	if snap.Deleted {
		f.forget(snap.Key)
	} else if i.Message != nil {
		f.remember(snap.Key, messageRef{ChannelID: i.ChannelID, MessageID: i.Message.ID})
	}
	respond(s, i, discordgo.InteractionResponseUpdateMessage, sessionMessage(snap.View))
}

func (f *Frontend) press(ctx context.Context, i *discordgo.Interaction, action duel.Action) (*duel.Snapshot, error) {
	u, name := interactionUser(i)
	if u == nil {
		return nil, errors.New("interaction has no user")
	}
	user, _, err := f.accounts.EnsureUser(ctx, UserID(u), name)
	if err != nil {
		return nil, err
	}
	return f.engine.Handle(ctx, action, duel.Player{ID: user.UserID, Name: name})
}

// isUserError reports whether err is a rejection the player caused.
func isUserError(err error) bool {
	for _, target := range []error{
		duel.ErrSessionNotFound, duel.ErrNotInLobby, duel.ErrLobbyFull, duel.ErrAlreadyJoined,
		duel.ErrNotAPlayer, duel.ErrNotHost, duel.ErrLobbyNotEmpty, duel.ErrNotEnoughPlayers,
		duel.ErrNoCompatibleGame, duel.ErrPlayerCountUnsupported, duel.ErrNotPlaying, duel.ErrNotYourTurn,
		duel.ErrAlreadyActed, duel.ErrNotEnded, duel.ErrBadCallback, duel.ErrBusy,
		duel.ErrInsufficientFunds, game.ErrIllegalMove,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Present implements duel.Presenter: it edits the message showing the session,
// or posts a new one to the session channel when none is known.
func (f *Frontend) Present(_ context.Context, snap *duel.Snapshot) error {
	f.mu.Lock()
	ref, ok := f.messages[snap.Key]
	if snap.Deleted {
		delete(f.messages, snap.Key)
	}
	f.mu.Unlock()

	embeds := []*discordgo.MessageEmbed{Embed(snap.View)}
	components := Components(snap.View)

	if ok {
		_, err := f.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         ref.MessageID,
			Channel:    ref.ChannelID,
			Embeds:     &embeds,
			Components: &components,
		})
		return err
	}

	msg, err := f.api.ChannelMessageSendComplex(snap.Channel, &discordgo.MessageSend{
		Embeds:     embeds,
		Components: components,
	})
	if err != nil {
		return err
	}
	if !snap.Deleted {
		f.remember(snap.Key, messageRef{ChannelID: msg.ChannelID, MessageID: msg.ID})
	}
	return nil
}

func (f *Frontend) remember(key string, ref messageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[key] = ref
}

func (f *Frontend) forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, key)
}
