package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/repository"
)

type fakeSnapshotRepo struct {
	snapshots map[string]*repository.BoardSnapshot
	saves     int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]*repository.BoardSnapshot)}
}

func snapshotTestKey(roomID, playerID string) string {
	return roomID + ":" + playerID
}

func (that *fakeSnapshotRepo) Save(_ context.Context, roomID, playerID string, snapshot *repository.BoardSnapshot) error {
	that.snapshots[snapshotTestKey(roomID, playerID)] = snapshot
	that.saves++

	return nil
}

func (that *fakeSnapshotRepo) GetByRoomAndPlayer(_ context.Context, roomID, playerID string) (*repository.BoardSnapshot, error) {
	snapshot, ok := that.snapshots[snapshotTestKey(roomID, playerID)]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}

	return snapshot, nil
}

func (that *fakeSnapshotRepo) DeleteByRoom(_ context.Context, roomID string, playerIDs []string) error {
	for _, playerID := range playerIDs {
		delete(that.snapshots, snapshotTestKey(roomID, playerID))
	}

	return nil
}

type fakeDeckRepo struct {
	decks map[string]*entity.Deck
	calls int
}

func newFakeDeckRepo(decks ...*entity.Deck) *fakeDeckRepo {
	repo := &fakeDeckRepo{decks: make(map[string]*entity.Deck)}
	for _, deck := range decks {
		repo.decks[deck.ID] = deck
	}

	return repo
}

func (that *fakeDeckRepo) GetByID(_ context.Context, id string) (*entity.Deck, error) {
	that.calls++

	deck, ok := that.decks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrDeckNotFound, id)
	}

	return deck, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestReconciler(snapshots *fakeSnapshotRepo, decks *fakeDeckRepo) *Reconciler {
	return NewReconciler(testLogger(), snapshots, decks, rand.New(rand.NewSource(1)))
}

func instance(name, id string) entity.CardInstance {
	return entity.CardInstance{Card: entity.Card{Name: name}, InstanceID: id}
}

func TestReconciler_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("Complete snapshot is used verbatim without deck loading", func(t *testing.T) {
		// Given: a persisted snapshot with nonempty hand and library
		snapshots := newFakeSnapshotRepo()
		require.NoError(t, snapshots.Save(ctx, "room1", "alice", &repository.BoardSnapshot{
			HandCards:    []entity.CardInstance{instance("CardA", "h1")},
			LibraryCards: []entity.CardInstance{instance("CardB", "l1"), instance("CardC", "l2")},
			BattlefieldCards: []entity.PlacedCard{
				{CardInstance: instance("CardD", "b1"), Position: entity.Position{X: 300, Y: 300}, ZIndex: 4},
			},
		}))
		decks := newFakeDeckRepo()
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating alice's own board
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: the snapshot is restored as-is and the deck was never fetched
		require.NoError(t, err)
		assert.Equal(t, 1, result.Board.Hand.Size())
		assert.Equal(t, 2, result.Board.Library.Size())
		assert.Equal(t, 1, result.Board.Battlefield.Size())
		assert.False(t, result.EmitHandState)
		assert.Equal(t, 0, decks.calls)
		// z-order continues above the restored battlefield
		assert.Greater(t, result.Board.NextZIndex, 4)
	})

	t.Run("Partial snapshot rebuilds library minus persisted hand", func(t *testing.T) {
		// Given: persisted hand [CardA, CardA] with an empty library, and a
		// deck of 2x CardA + 1x CardB
		snapshots := newFakeSnapshotRepo()
		require.NoError(t, snapshots.Save(ctx, "room1", "alice", &repository.BoardSnapshot{
			HandCards: []entity.CardInstance{instance("CardA", "h1"), instance("CardA", "h2")},
		}))
		decks := newFakeDeckRepo(&entity.Deck{
			ID: "deck1",
			Entries: []entity.DeckEntry{
				{Card: entity.Card{Name: "CardA"}, Quantity: 2},
				{Card: entity.Card{Name: "CardB"}, Quantity: 1},
			},
		})
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: the rebuilt library holds exactly the one unaccounted CardB
		require.NoError(t, err)
		assert.Equal(t, 2, result.Board.Hand.Size())
		require.Equal(t, 1, result.Board.Library.Size())
		assert.Equal(t, "CardB", result.Board.Library.Cards[0].Name)
		assert.True(t, result.EmitHandState)
	})

	t.Run("Hand cards missing from deck are accepted with undersized library", func(t *testing.T) {
		// Given: a persisted hand holding a card the deck does not run
		snapshots := newFakeSnapshotRepo()
		require.NoError(t, snapshots.Save(ctx, "room1", "alice", &repository.BoardSnapshot{
			HandCards: []entity.CardInstance{instance("Stray", "h1")},
		}))
		decks := newFakeDeckRepo(&entity.Deck{
			ID:      "deck1",
			Entries: []entity.DeckEntry{{Card: entity.Card{Name: "CardB"}, Quantity: 1}},
		})
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: reconciliation proceeds anyway
		require.NoError(t, err)
		assert.Equal(t, 1, result.Board.Hand.Size())
		assert.Equal(t, 1, result.Board.Library.Size())
	})

	t.Run("Empty hand with a persisted library is complete state", func(t *testing.T) {
		// Given: a snapshot where every card sits in library or battlefield
		snapshots := newFakeSnapshotRepo()
		require.NoError(t, snapshots.Save(ctx, "room1", "alice", &repository.BoardSnapshot{
			LibraryCards: []entity.CardInstance{instance("CardA", "l1"), instance("CardB", "l2")},
			BattlefieldCards: []entity.PlacedCard{
				{CardInstance: instance("CardC", "b1"), Position: entity.Position{X: 300, Y: 300}, ZIndex: 1},
			},
		}))
		decks := newFakeDeckRepo(&entity.Deck{
			ID:      "deck1",
			Entries: []entity.DeckEntry{{Card: entity.Card{Name: "CardA"}, Quantity: 40}},
		})
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating the session user's own board with a deck selected
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: the persisted library survives untouched, nothing is re-dealt
		require.NoError(t, err)
		assert.Equal(t, 0, result.Board.Hand.Size())
		require.Equal(t, 2, result.Board.Library.Size())
		assert.Equal(t, "l1", result.Board.Library.Cards[0].InstanceID)
		assert.Equal(t, 1, result.Board.Battlefield.Size())
		assert.Equal(t, 3, result.Board.TotalCards())
		assert.False(t, result.EmitHandState)
		assert.Equal(t, 0, decks.calls)
	})

	t.Run("No snapshot deals a fresh library with an empty hand", func(t *testing.T) {
		// Given: no persisted state and a selected deck
		snapshots := newFakeSnapshotRepo()
		decks := newFakeDeckRepo(&entity.Deck{
			ID:      "deck1",
			Entries: []entity.DeckEntry{{Card: entity.Card{Name: "Forest"}, Quantity: 40}},
		})
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating the session user's own board
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: full shuffled library, no auto-drawn opening hand
		require.NoError(t, err)
		assert.Equal(t, 0, result.Board.Hand.Size())
		assert.Equal(t, 40, result.Board.Library.Size())
		assert.True(t, result.EmitHandState)
	})

	t.Run("Spectating an unknown player shows an empty board", func(t *testing.T) {
		// Given: no persisted state for the spectated player
		snapshots := newFakeSnapshotRepo()
		decks := newFakeDeckRepo()
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: bob's session hydrates alice's board
		result, err := reconciler.Hydrate(ctx, room, "alice", "bob", "")

		// Then: the board is empty and nothing is emitted
		require.NoError(t, err)
		assert.Equal(t, 0, result.Board.TotalCards())
		assert.False(t, result.EmitHandState)
		assert.Equal(t, 0, decks.calls)
	})

	t.Run("Deck fetch failure degrades to an empty board", func(t *testing.T) {
		// Given: no snapshot and a deck that cannot be fetched
		snapshots := newFakeSnapshotRepo()
		decks := newFakeDeckRepo()
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		// When: hydrating
		result, err := reconciler.Hydrate(ctx, room, "alice", "alice", "missing-deck")

		// Then: the view is not blocked; the board is empty but usable
		require.NoError(t, err)
		assert.Equal(t, 0, result.Board.TotalCards())
		assert.False(t, result.EmitHandState)
	})

	t.Run("Hydration runs at most once per room and player", func(t *testing.T) {
		// Given: a fresh deal already hydrated once
		snapshots := newFakeSnapshotRepo()
		decks := newFakeDeckRepo(&entity.Deck{
			ID:      "deck1",
			Entries: []entity.DeckEntry{{Card: entity.Card{Name: "Island"}, Quantity: 10}},
		})
		reconciler := newTestReconciler(snapshots, decks)
		room := entity.NewGameRoomState("room1", "alice")

		first, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")
		require.NoError(t, err)
		firstOrder := append([]entity.CardInstance(nil), first.Board.Library.Cards...)

		// When: hydrating again with no intervening mutation
		second, err := reconciler.Hydrate(ctx, room, "alice", "alice", "deck1")

		// Then: identical state, no re-shuffle, no second deck fetch
		require.NoError(t, err)
		assert.Equal(t, firstOrder, second.Board.Library.Cards)
		assert.False(t, second.EmitHandState)
		assert.Equal(t, 1, decks.calls)
	})
}
