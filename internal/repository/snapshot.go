package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
)

var ErrSnapshotNotFound = errors.New("board snapshot not found")

// BoardSnapshot is the persisted wire shape of one player's board, keyed by
// room and player. The reconciler is its only reader.
type BoardSnapshot struct {
	BattlefieldCards []entity.PlacedCard   `json:"battlefieldCards"`
	HandCards        []entity.CardInstance `json:"handCards"`
	LibraryCards     []entity.CardInstance `json:"libraryCards"`
}

// IsEmpty reports whether the snapshot holds no cards at all.
func (that *BoardSnapshot) IsEmpty() bool {
	return len(that.BattlefieldCards) == 0 && len(that.HandCards) == 0 && len(that.LibraryCards) == 0
}

// SnapshotFromBoard captures the current zone contents of a board.
func SnapshotFromBoard(board *entity.PlayerBoardState) *BoardSnapshot {
	return &BoardSnapshot{
		BattlefieldCards: append([]entity.PlacedCard(nil), board.Battlefield.Cards...),
		HandCards:        append([]entity.CardInstance(nil), board.Hand.Cards...),
		LibraryCards:     append([]entity.CardInstance(nil), board.Library.Cards...),
	}
}

type SnapshotRepository interface {
	Save(ctx context.Context, roomID, playerID string, snapshot *BoardSnapshot) error
	GetByRoomAndPlayer(ctx context.Context, roomID, playerID string) (*BoardSnapshot, error)
	DeleteByRoom(ctx context.Context, roomID string, playerIDs []string) error
}

type dbSnapshot struct {
	client *redis.Client
}

func NewSnapshotRepository(client *redis.Client) SnapshotRepository {
	return &dbSnapshot{
		client: client,
	}
}

func snapshotKey(roomID, playerID string) string {
	return "snapshot:" + roomID + ":" + playerID
}

func (that *dbSnapshot) Save(ctx context.Context, roomID, playerID string, snapshot *BoardSnapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	err = that.client.Set(ctx, snapshotKey(roomID, playerID), snapshotJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (that *dbSnapshot) GetByRoomAndPlayer(ctx context.Context, roomID, playerID string) (*BoardSnapshot, error) {
	response, err := that.client.Get(ctx, snapshotKey(roomID, playerID)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snapshot BoardSnapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

func (that *dbSnapshot) DeleteByRoom(ctx context.Context, roomID string, playerIDs []string) error {
	keys := make([]string, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		keys = append(keys, snapshotKey(roomID, playerID))
	}

	if len(keys) == 0 {
		return nil
	}

	if err := that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return nil
}
