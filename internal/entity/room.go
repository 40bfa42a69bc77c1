package entity

// GameRoomState aggregates the boards of every participant in one room.
// Room creation and teardown belong to the caller; this type only tracks
// in-memory state between those points.
type GameRoomState struct {
	ID           string                       `json:"id"`
	HostID       string                       `json:"host_id"`
	Participants map[string]*PlayerBoardState `json:"participants"`

	// hydrated marks (room, player) pairs whose board has already gone
	// through reconciliation. Switching the view away and back must not
	// re-deal or re-shuffle.
	hydrated map[string]bool
}

func NewGameRoomState(id, hostID string) *GameRoomState {
	return &GameRoomState{
		ID:           id,
		HostID:       hostID,
		Participants: make(map[string]*PlayerBoardState),
		hydrated:     make(map[string]bool),
	}
}

func (that *GameRoomState) Board(playerID string) (*PlayerBoardState, bool) {
	board, ok := that.Participants[playerID]
	return board, ok
}

// EnsureBoard returns the participant's board, creating an empty one on
// first reference.
func (that *GameRoomState) EnsureBoard(playerID string) *PlayerBoardState {
	if board, ok := that.Participants[playerID]; ok {
		return board
	}

	board := NewPlayerBoardState(playerID)
	that.Participants[playerID] = board

	return board
}

// RemoveParticipant drops the player's board and hydration mark. A later
// rejoin goes through reconciliation again, against the persisted snapshot.
func (that *GameRoomState) RemoveParticipant(playerID string) {
	delete(that.Participants, playerID)
	delete(that.hydrated, playerID)
}

func (that *GameRoomState) Hydrated(playerID string) bool {
	return that.hydrated[playerID]
}

func (that *GameRoomState) MarkHydrated(playerID string) {
	that.hydrated[playerID] = true
}
