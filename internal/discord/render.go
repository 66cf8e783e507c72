package discord

import (
	"github.com/bwmarrin/discordgo"

	"duel-bot/internal/duel"
)

// Discord allows at most five action rows of five buttons.
const (
	maxRows       = 5
	maxRowButtons = 5
)

var buttonStyles = map[duel.Style]discordgo.ButtonStyle{
	duel.StyleSecondary: discordgo.SecondaryButton,
	duel.StylePrimary:   discordgo.PrimaryButton,
	duel.StyleSuccess:   discordgo.SuccessButton,
	duel.StyleDanger:    discordgo.DangerButton,
}

// Embed converts a session view to a message embed.
func Embed(v duel.View) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		Color:       v.Color,
	}
	for _, f := range v.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if v.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: v.Footer}
	}
	return embed
}

// Components converts the view's buttons to action rows. Long rows are wrapped and
// anything past the fifth row is dropped.
func Components(v duel.View) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}
	for _, row := range v.Buttons {
		for start := 0; start < len(row); start += maxRowButtons {
			end := min(start+maxRowButtons, len(row))
			buttons := make([]discordgo.MessageComponent, 0, end-start)
			for _, b := range row[start:end] {
				buttons = append(buttons, discordgo.Button{
					Label:    b.Label,
					Style:    buttonStyles[b.Style],
					CustomID: b.ID,
					Disabled: b.Disabled,
				})
			}
			if len(rows) == maxRows {
				return rows
			}
			rows = append(rows, discordgo.ActionsRow{Components: buttons})
		}
	}
	return rows
}

// sessionMessage is the public response carrying a session view.
func sessionMessage(v duel.View) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{Embed(v)},
		Components: Components(v),
	}
}

// ephemeral is a reply only the invoking user sees.
func ephemeral(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}
}

// public is a plain reply visible to the channel.
func public(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{Content: content}
}
