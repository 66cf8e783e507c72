package game

// Base is the turn bookkeeping shared by all game states.
type Base struct {
	Names []string
	Turn  int    // seat to act in alternating games
	Alive []bool // false once a seat is eliminated
	Moves int    // accepted moves since the deal
	Last  string // narration of the latest event
}

// NewBase seats the given players, all alive, seat 0 to act.
func NewBase(names []string) Base {
	alive := make([]bool, len(names))
	for i := range alive {
		alive[i] = true
	}
	return Base{Names: append([]string(nil), names...), Alive: alive}
}

// Core returns the Base itself, so embedding it satisfies State.
func (b *Base) Core() *Base { return b }

// Seats returns the number of seats.
func (b *Base) Seats() int { return len(b.Alive) }

// Name returns the display name of a seat.
func (b *Base) Name(seat int) string {
	if seat < 0 || seat >= len(b.Names) {
		return "?"
	}
	return b.Names[seat]
}

// Advance moves the turn to the next alive seat in join order, wrapping around.
func (b *Base) Advance() {
	n := len(b.Alive)
	for i := 1; i <= n; i++ {
		next := (b.Turn + i) % n
		if b.Alive[next] {
			b.Turn = next
			return
		}
	}
}

// Eliminate marks a seat as out. When it held the turn, the turn advances.
func (b *Base) Eliminate(seat int) {
	b.Alive[seat] = false
	if b.Turn == seat && b.AliveCount() > 0 {
		b.Advance()
	}
}

// AliveCount returns the number of seats still in the game.
func (b *Base) AliveCount() int {
	n := 0
	for _, a := range b.Alive {
		if a {
			n++
		}
	}
	return n
}

// AliveSeats returns the seats still in the game in join order.
func (b *Base) AliveSeats() []int {
	seats := make([]int, 0, len(b.Alive))
	for i, a := range b.Alive {
		if a {
			seats = append(seats, i)
		}
	}
	return seats
}

// Survivor returns the only alive seat, or -1 while more than one remains.
func (b *Base) Survivor() int {
	seats := b.AliveSeats()
	if len(seats) == 1 {
		return seats[0]
	}
	return -1
}

// Opponent returns the other seat of a two-player game.
func (b *Base) Opponent(seat int) int {
	return 1 - seat
}

// AlternatingTimeout is the forfeit rule for turn-based games: before any move the game is
// refunded; afterwards the turn holder forfeits, losing a duel outright and being
// eliminated from a group game.
func AlternatingTimeout(b *Base) Forfeit {
	if b.Moves == 0 {
		return Forfeit{Kind: ForfeitRefund}
	}
	if b.AliveCount() <= 2 {
		for _, seat := range b.AliveSeats() {
			if seat != b.Turn {
				return Forfeit{Kind: ForfeitWin, Seat: seat}
			}
		}
	}
	return Forfeit{Kind: ForfeitEliminate, Seat: b.Turn}
}

// SimultaneousTimeout is the forfeit rule for round-based games given who has acted this round.
// Nobody acting refunds the game and a lone actor wins. With several actors the seats
// that did not act are eliminated and the round is settled among the rest.
func SimultaneousTimeout(b *Base, acted []bool) Forfeit {
	actor, count := -1, 0
	var idle []int
	for _, seat := range b.AliveSeats() {
		if acted[seat] {
			actor = seat
			count++
			continue
		}
		idle = append(idle, seat)
	}
	switch count {
	case 0:
		return Forfeit{Kind: ForfeitRefund}
	case 1:
		return Forfeit{Kind: ForfeitWin, Seat: actor}
	}
	return Forfeit{Kind: ForfeitCloseRound, Idle: idle}
}
