package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/apperror"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/repository"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/tabletop"
)

type snapshotRepo interface {
	Save(ctx context.Context, roomID, playerID string, snapshot *repository.BoardSnapshot) error
	GetByRoomAndPlayer(ctx context.Context, roomID, playerID string) (*repository.BoardSnapshot, error)
	DeleteByRoom(ctx context.Context, roomID string, playerIDs []string) error
}

// RoomManager orchestrates every room's board state. All mutation entry
// points gate on the caller's view context: a spectating session is refused
// before any state change or emission happens.
type RoomManager struct {
	logger     *slog.Logger
	reconciler *Reconciler
	snapshots  snapshotRepo

	mu    sync.RWMutex
	rooms map[string]*roomSession
}

// roomSession serializes access to one room's state. Board transitions are
// synchronous and in-memory, so the per-room lock is the only arbitration
// the conservation invariants need.
type roomSession struct {
	mu    sync.Mutex
	state *entity.GameRoomState
}

func NewRoomManager(logger *slog.Logger, reconciler *Reconciler, snapshots snapshotRepo) *RoomManager {
	return &RoomManager{
		logger:     logger.With("component", "room_manager"),
		reconciler: reconciler,
		snapshots:  snapshots,
		rooms:      make(map[string]*roomSession),
	}
}

// BoardView is a detached copy of one board, safe to serialize after the
// room lock is released.
type BoardView struct {
	PlayerID         string
	BattlefieldCards []entity.PlacedCard
	HandCards        []entity.CardInstance
	LibraryCards     []entity.CardInstance
	EmitHandState    bool
}

// BoardUpdate carries the hand/library composition after a mutation.
type BoardUpdate struct {
	PlayerID     string
	HandCards    []entity.CardInstance
	LibraryCards []entity.CardInstance
}

// PlayResult is the outcome of playing a card onto the battlefield.
type PlayResult struct {
	Placed entity.PlacedCard
	Update *BoardUpdate
}

// ReturnResult is the outcome of returning a battlefield card to hand.
type ReturnResult struct {
	CardID string
	Update *BoardUpdate
}

func (that *RoomManager) getOrCreateRoom(roomID, hostID string) *roomSession {
	that.mu.Lock()
	defer that.mu.Unlock()

	if room, ok := that.rooms[roomID]; ok {
		return room
	}

	room := &roomSession{state: entity.NewGameRoomState(roomID, hostID)}
	that.rooms[roomID] = room

	that.logger.Info("room created", "roomID", roomID, "hostID", hostID)

	return room
}

func (that *RoomManager) getRoom(roomID string) (*roomSession, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return room, nil
}

// JoinRoom registers the player in the room (creating it if needed, the
// first joiner becomes host) and hydrates their own board. Rejoining after
// a reload reuses the hydrated board; the reconciler never re-deals.
func (that *RoomManager) JoinRoom(ctx context.Context, roomID, playerID, deckID string) (*BoardView, error) {
	room := that.getOrCreateRoom(roomID, playerID)

	room.mu.Lock()
	defer room.mu.Unlock()

	result, err := that.reconciler.Hydrate(ctx, room.state, playerID, playerID, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate board: %w", err)
	}

	if result.EmitHandState {
		that.persistBoard(ctx, roomID, result.Board)
	}

	return boardView(result), nil
}

// SpectatePlayer hydrates the viewed player's board for a session switching
// its view. No deck is consulted: spectating a player whose state is unknown
// shows an empty board.
func (that *RoomManager) SpectatePlayer(ctx context.Context, roomID string, view entity.ViewContext) (*BoardView, error) {
	room, err := that.getRoom(roomID)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	result, err := that.reconciler.Hydrate(ctx, room.state, view.ActiveViewUserID, view.SessionUserID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate spectated board: %w", err)
	}

	return boardView(result), nil
}

// LeaveRoom drops the player's in-memory board. The persisted snapshot stays
// untouched, so a later rejoin rehydrates from it. An emptied room is removed
// from the registry.
func (that *RoomManager) LeaveRoom(roomID, playerID string) error {
	room, err := that.getRoom(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	room.state.RemoveParticipant(playerID)
	empty := len(room.state.Participants) == 0
	room.mu.Unlock()

	if empty {
		that.mu.Lock()
		delete(that.rooms, roomID)
		that.mu.Unlock()
	}

	that.logger.Info("player left room", "roomID", roomID, "playerID", playerID, "room_emptied", empty)

	return nil
}

// CloseRoom clears the room's in-memory state and persisted snapshots.
// Deciding when a room is torn down belongs to the caller.
func (that *RoomManager) CloseRoom(ctx context.Context, roomID string) error {
	that.mu.Lock()
	room, ok := that.rooms[roomID]
	delete(that.rooms, roomID)
	that.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	room.mu.Lock()
	playerIDs := make([]string, 0, len(room.state.Participants))
	for playerID := range room.state.Participants {
		playerIDs = append(playerIDs, playerID)
	}
	room.mu.Unlock()

	if err := that.snapshots.DeleteByRoom(ctx, roomID, playerIDs); err != nil {
		return fmt.Errorf("failed to delete room snapshots: %w", err)
	}

	that.logger.Info("room closed", "roomID", roomID)

	return nil
}

// Draw moves the top library card to the acting player's hand.
func (that *RoomManager) Draw(ctx context.Context, roomID string, view entity.ViewContext) (*BoardUpdate, error) {
	var update *BoardUpdate

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		if _, err := tabletop.Draw(board); err != nil {
			return err
		}

		update = boardUpdate(board)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return update, nil
}

// PlayCard moves a hand card onto the battlefield.
func (that *RoomManager) PlayCard(ctx context.Context, roomID string, view entity.ViewContext, handInstanceID string, position entity.Position) (*PlayResult, error) {
	var result *PlayResult

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		placed, err := tabletop.Play(board, handInstanceID, position)
		if err != nil {
			return err
		}

		result = &PlayResult{Placed: placed, Update: boardUpdate(board)}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// PlayFromLibrary places a library card directly onto the battlefield.
func (that *RoomManager) PlayFromLibrary(ctx context.Context, roomID string, view entity.ViewContext, libraryInstanceID string, position entity.Position) (*PlayResult, error) {
	var result *PlayResult

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		placed, err := tabletop.PlayFromLibrary(board, libraryInstanceID, position)
		if err != nil {
			return err
		}

		result = &PlayResult{Placed: placed, Update: boardUpdate(board)}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// TapCard sets one battlefield card's tap state.
func (that *RoomManager) TapCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string, tapped bool) ([]tabletop.TapResult, error) {
	var results []tabletop.TapResult

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		card, err := tabletop.Tap(board, instanceID, tapped)
		if err != nil {
			return err
		}

		results = []tabletop.TapResult{{CardID: card.InstanceID, Tapped: card.Tapped}}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// GroupTap resolves a multi-select tap with the untap-all tie-break.
func (that *RoomManager) GroupTap(ctx context.Context, roomID string, view entity.ViewContext, instanceIDs []string) ([]tabletop.TapResult, error) {
	var results []tabletop.TapResult

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		var err error
		results, err = tabletop.GroupTap(board, instanceIDs)

		return err
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// MoveCard repositions a battlefield card.
func (that *RoomManager) MoveCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string, position entity.Position) (entity.PlacedCard, error) {
	var placed entity.PlacedCard

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		var err error
		placed, err = tabletop.Move(board, instanceID, position)

		return err
	})
	if err != nil {
		return entity.PlacedCard{}, err
	}

	return placed, nil
}

// ReturnCard moves a battlefield card back to the acting player's hand.
func (that *RoomManager) ReturnCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string) (*ReturnResult, error) {
	var result *ReturnResult

	err := that.withOwnBoard(ctx, roomID, view, func(board *entity.PlayerBoardState) error {
		if _, err := tabletop.Return(board, instanceID); err != nil {
			return err
		}

		result = &ReturnResult{CardID: instanceID, Update: boardUpdate(board)}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// withOwnBoard runs fn against the session user's own board under the room
// lock, after the spectator gate, and persists the snapshot when fn applied
// a transition.
func (that *RoomManager) withOwnBoard(ctx context.Context, roomID string, view entity.ViewContext, fn func(*entity.PlayerBoardState) error) error {
	if view.IsSpectating() {
		return apperror.ErrSpectatorReadOnly
	}

	room, err := that.getRoom(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.state.Hydrated(view.SessionUserID) {
		return fmt.Errorf("%w: %s", apperror.ErrBoardNotHydrated, view.SessionUserID)
	}

	board, ok := room.state.Board(view.SessionUserID)
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrPlayerNotFound, view.SessionUserID)
	}

	if err = fn(board); err != nil {
		return err
	}

	that.persistBoard(ctx, roomID, board)

	return nil
}

// persistBoard writes the board snapshot; persistence failures are logged,
// never surfaced, since the in-memory state already advanced.
func (that *RoomManager) persistBoard(ctx context.Context, roomID string, board *entity.PlayerBoardState) {
	if err := that.snapshots.Save(ctx, roomID, board.PlayerID, repository.SnapshotFromBoard(board)); err != nil {
		that.logger.Error("failed to persist board snapshot",
			"roomID", roomID, "playerID", board.PlayerID, "error", err)
	}
}

func boardView(result *HydrationResult) *BoardView {
	return &BoardView{
		PlayerID:         result.Board.PlayerID,
		BattlefieldCards: append([]entity.PlacedCard(nil), result.Board.Battlefield.Cards...),
		HandCards:        append([]entity.CardInstance(nil), result.Board.Hand.Cards...),
		LibraryCards:     append([]entity.CardInstance(nil), result.Board.Library.Cards...),
		EmitHandState:    result.EmitHandState,
	}
}

func boardUpdate(board *entity.PlayerBoardState) *BoardUpdate {
	return &BoardUpdate{
		PlayerID:     board.PlayerID,
		HandCards:    append([]entity.CardInstance(nil), board.Hand.Cards...),
		LibraryCards: append([]entity.CardInstance(nil), board.Library.Cards...),
	}
}
