package entity

// PlayerBoardState is the complete zone contents for one participant. It is
// mutated only through the transitions in internal/tabletop; every other
// client holds a read-only mirror updated via sync events.
type PlayerBoardState struct {
	PlayerID    string      `json:"player_id"`
	Hand        Hand        `json:"hand"`
	Library     Library     `json:"library"`
	Battlefield Battlefield `json:"battlefield"`
	NextZIndex  int         `json:"next_z_index"`
}

func NewPlayerBoardState(playerID string) *PlayerBoardState {
	return &PlayerBoardState{
		PlayerID:   playerID,
		NextZIndex: 1,
	}
}

// TakeZIndex returns the next stacking token and advances the counter.
func (that *PlayerBoardState) TakeZIndex() int {
	z := that.NextZIndex
	that.NextZIndex++

	return z
}

// TotalCards counts cards across all three zones. For any sequence of
// draw/play/return transitions this total never changes.
func (that *PlayerBoardState) TotalCards() int {
	return that.Hand.Size() + that.Library.Size() + that.Battlefield.Size()
}
