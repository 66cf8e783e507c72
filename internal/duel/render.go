package duel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"duel-bot/internal/game"
)

// Style is the colour role of a button.
type Style int

const (
	StyleSecondary Style = iota
	StylePrimary
	StyleSuccess
	StyleDanger
)

// Button is an interactive control. ID is the callback id the frontend sends back.
type Button struct {
	Label    string
	ID       string
	Style    Style
	Disabled bool
}

// Field is a titled block of the view.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// View is the platform-neutral rendering of a session.
type View struct {
	Title       string
	Description string
	Fields      []Field
	Footer      string
	Color       int
	Buttons     [][]Button
}

// Text flattens the view for text-only chats.
func (v View) Text() string {
	var sb strings.Builder
	sb.WriteString(v.Title)
	if v.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(v.Description)
	}
	if len(v.Fields) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range v.Fields {
		fmt.Fprintf(&sb, "\n%s: %s", f.Name, f.Value)
	}
	if v.Footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(v.Footer)
	}
	return sb.String()
}

// Embed colours.
const (
	colorLobby     = 0x5865F2
	colorCountdown = 0xFEE75C
	colorPlaying   = 0x57F287
	colorWin       = 0xF1C40F
	colorDraw      = 0x95A5A6
)

// CallbackPrefix starts every duel button id.
const CallbackPrefix = "duel"

// Op is the operation a button triggers.
type Op string

const (
	OpJoin    Op = "join"
	OpLeave   Op = "leave"
	OpStart   Op = "start"
	OpCancel  Op = "cancel"
	OpMove    Op = "move"
	OpRematch Op = "rematch"
	OpDecline Op = "decline"
)

// Action is a decoded button press.
type Action struct {
	Key  string
	Op   Op
	Move game.Move
}

// CallbackID encodes a lobby or rematch button: duel:<key>:<op>.
func CallbackID(key string, op Op) string {
	return CallbackPrefix + ":" + key + ":" + string(op)
}

// MoveCallbackID encodes a game move button: duel:<key>:move:<kind>:<index>.
// With a uuid key it stays under Telegram's 64 byte callback limit.
func MoveCallbackID(key string, m game.Move) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", CallbackPrefix, key, OpMove, m.Kind, m.Index)
}

// ParseCallback decodes a button id produced by CallbackID or MoveCallbackID.
func ParseCallback(id string) (Action, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 3 || parts[0] != CallbackPrefix || parts[1] == "" {
		return Action{}, ErrBadCallback
	}
	a := Action{Key: parts[1], Op: Op(parts[2])}

	switch a.Op {
	case OpJoin, OpLeave, OpStart, OpCancel, OpRematch, OpDecline:
		if len(parts) != 3 {
			return Action{}, ErrBadCallback
		}
	case OpMove:
		if len(parts) != 5 || parts[3] == "" {
			return Action{}, ErrBadCallback
		}
		idx, err := strconv.Atoi(parts[4])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %v", ErrBadCallback, err)
		}
		a.Move = game.Move{Kind: parts[3], Index: idx}
	default:
		return Action{}, ErrBadCallback
	}
	return a, nil
}

// snapshot copies the session and renders it. The caller holds the session lock.
func (e *Engine) snapshot(s *Session, deleted bool) *Snapshot {
	return &Snapshot{
		Key:        s.Key,
		Origin:     s.Origin,
		Channel:    s.Channel,
		Status:     s.Status,
		GameType:   s.GameType,
		Players:    append([]Player(nil), s.Players...),
		HostID:     s.HostID,
		Bet:        s.Bet,
		Round:      s.Round,
		Outcome:    s.Outcome,
		Settlement: s.Settlement,
		Deleted:    deleted,
		View:       e.render(s, deleted),
	}
}

func gameTitle(s *Session) string {
	if s.Rules == nil {
		return "🎲 Random game"
	}
	info := s.Rules.Info()
	return info.Emoji + " " + info.Name
}

func (s *Session) name(playerID string) string {
	if p, ok := s.Player(playerID); ok {
		return p.Name
	}
	return playerID
}

func playerList(s *Session) string {
	lines := make([]string, len(s.Players))
	for i, p := range s.Players {
		mark := "•"
		if p.ID == s.HostID {
			mark = "👑"
		}
		lines[i] = mark + " " + p.Name
	}
	return strings.Join(lines, "\n")
}

func betField(s *Session) Field {
	switch {
	case s.Bet > 0:
		return Field{Name: "Bet", Value: fmt.Sprintf("%d 💰 each", s.Bet), Inline: true}
	case s.HasAI():
		return Field{Name: "Bet", Value: "Friendly vs AI", Inline: true}
	default:
		return Field{Name: "Bet", Value: "Friendly (honor)", Inline: true}
	}
}

func (e *Engine) render(s *Session, deleted bool) View {
	switch s.Status {
	case StatusLobby:
		return e.renderLobby(s, deleted)
	case StatusCountdown:
		return e.renderCountdown(s)
	case StatusPlaying:
		return e.renderPlaying(s)
	default:
		return e.renderEnded(s, deleted)
	}
}

func (e *Engine) renderLobby(s *Session, deleted bool) View {
	v := View{
		Title: "⚔️ Duel lobby: " + gameTitle(s),
		Color: colorLobby,
		Fields: []Field{
			betField(s),
			{Name: fmt.Sprintf("Players (%d/%d)", len(s.Players), e.capacity(s)), Value: playerList(s)},
		},
	}
	if s.Rules != nil {
		v.Description = s.Rules.Info().Rules
	} else {
		v.Description = "A game that fits the number of players is drawn when the host starts."
	}

	if deleted {
		v.Footer = "Lobby closed"
		v.Color = colorDraw
		return v
	}
	v.Footer = "The host starts the game when everyone is in"

	row := make([]Button, 0, 4)
	if !s.HasAI() {
		row = append(row, Button{Label: "Join", ID: CallbackID(s.Key, OpJoin), Style: StyleSuccess})
	}
	row = append(row,
		Button{Label: "Leave", ID: CallbackID(s.Key, OpLeave)},
		Button{Label: "Start", ID: CallbackID(s.Key, OpStart), Style: StylePrimary, Disabled: len(s.Players) < 2},
		Button{Label: "Cancel", ID: CallbackID(s.Key, OpCancel), Style: StyleDanger},
	)
	v.Buttons = [][]Button{row}
	return v
}

func (e *Engine) renderCountdown(s *Session) View {
	desc := fmt.Sprintf("Starting in %s...", e.cfg.Countdown)
	if s.Round > 0 {
		desc = fmt.Sprintf("Rematch #%d starting in %s...", s.Round, e.cfg.Countdown)
	}
	return View{
		Title:       gameTitle(s),
		Description: desc + "\n\n" + s.Rules.Info().Rules,
		Color:       colorCountdown,
		Fields:      []Field{betField(s), {Name: "Players", Value: playerList(s)}},
	}
}

func (e *Engine) renderPlaying(s *Session) View {
	board := s.Rules.Board(s.State)
	v := View{
		Title:       gameTitle(s),
		Description: strings.Join(board.Lines, "\n"),
		Color:       colorPlaying,
		Footer:      fmt.Sprintf("%s · %s per move", board.Status, e.cfg.ActionTimeout),
	}
	if s.Bet > 0 {
		v.Fields = append(v.Fields, Field{Name: "Pot", Value: fmt.Sprintf("%d 💰", sumStakes(s.stakes)), Inline: true})
	}

	for _, row := range board.Controls {
		buttons := make([]Button, len(row))
		for i, c := range row {
			buttons[i] = Button{Label: c.Label, ID: MoveCallbackID(s.Key, c.Move), Disabled: c.Disabled}
		}
		v.Buttons = append(v.Buttons, buttons)
	}
	return v
}

func (e *Engine) renderEnded(s *Session, deleted bool) View {
	v := View{Title: gameTitle(s), Color: colorDraw}

	var lines []string
	if s.State != nil {
		lines = append(lines, s.Rules.Board(s.State).Lines...)
		lines = append(lines, "")
	}
	if out := s.Outcome; out != nil {
		switch {
		case out.Aborted:
			lines = append(lines, "⏰ Game over: "+out.Reason)
		case out.Draw:
			lines = append(lines, "🤝 Draw: "+out.Reason)
		default:
			lines = append(lines, fmt.Sprintf("🏆 %s wins: %s", s.name(out.WinnerID), out.Reason))
			v.Color = colorWin
		}
	}
	v.Description = strings.TrimSpace(strings.Join(lines, "\n"))

	if summary := settlementSummary(s); summary != "" {
		v.Fields = append(v.Fields, Field{Name: "Settlement", Value: summary})
	}

	if deleted {
		if s.Outcome != nil && !s.Outcome.Aborted {
			v.Footer = "Rematch window closed"
		}
		return v
	}

	var opted []string
	for _, p := range s.Players {
		if s.Rematch[p.ID] {
			opted = append(opted, p.Name)
		}
	}
	if len(opted) > 0 {
		v.Fields = append(v.Fields, Field{Name: "Rematch", Value: "✅ " + strings.Join(opted, ", ")})
	}

	next := s.Bet
	if len(s.Players) == 2 {
		next *= 2
	}
	label := "🔁 Rematch"
	if next > 0 {
		label = fmt.Sprintf("🔁 Rematch (%d)", next)
	}
	v.Footer = fmt.Sprintf("Rematch offer open for %s", e.cfg.RematchWindow)
	v.Buttons = [][]Button{{
		{Label: label, ID: CallbackID(s.Key, OpRematch), Style: StylePrimary},
		{Label: "✖ Leave", ID: CallbackID(s.Key, OpDecline), Style: StyleDanger},
	}}
	return v
}

func settlementSummary(s *Session) string {
	st := s.Settlement
	if st == nil {
		return ""
	}

	var parts []string
	switch {
	case len(st.Refunds) > 0:
		ids := make([]string, 0, len(st.Refunds))
		for id := range st.Refunds {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			parts = append(parts, fmt.Sprintf("↩️ %s +%d", s.name(id), st.Refunds[id]))
		}
	case st.Pot > 0 && s.Outcome != nil && s.Outcome.WinnerID != "":
		parts = append(parts,
			fmt.Sprintf("Pot %d 💰", st.Pot),
			fmt.Sprintf("Tax %d to the vault", st.Tax),
			fmt.Sprintf("%s receives %d 💰", s.name(s.Outcome.WinnerID), st.Payout))
	case st.Honor:
		parts = append(parts, fmt.Sprintf("🎖️ %s earns 1 honor", s.name(s.Outcome.WinnerID)))
	case st.Pot == 0 && s.HasAI():
		parts = append(parts, "Friendly game vs AI, nothing at stake")
	case st.Pot == 0:
		parts = append(parts, "Nothing at stake")
	}
	if st.Failed {
		parts = append(parts, "⚠️ A balance update failed and was logged")
	}
	return strings.Join(parts, "\n")
}
