package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/testing/suite"
)

func TestSnapshotRepository(t *testing.T) {
	ctx, s := suite.New(t)

	repo := NewSnapshotRepository(s.Storage)

	snapshot := &BoardSnapshot{
		HandCards: []entity.CardInstance{
			{Card: entity.Card{Name: "Counterspell", ManaCost: "{U}{U}"}, InstanceID: "h1"},
		},
		LibraryCards: []entity.CardInstance{
			{Card: entity.Card{Name: "Island"}, InstanceID: "l1"},
		},
		BattlefieldCards: []entity.PlacedCard{
			{
				CardInstance: entity.CardInstance{Card: entity.Card{Name: "Serra Angel"}, InstanceID: "b1"},
				Position:     entity.Position{X: 420, Y: 540},
				Tapped:       true,
				ZIndex:       3,
			},
		},
	}

	t.Run("Save and read back a board snapshot", func(t *testing.T) {
		// When: saving and fetching under the same room and player
		err := repo.Save(ctx, "room1", "alice", snapshot)
		require.NoError(t, err)

		got, err := repo.GetByRoomAndPlayer(ctx, "room1", "alice")

		// Then: zone contents, positions and tap state survive the round trip
		require.NoError(t, err)
		assert.Equal(t, snapshot.HandCards, got.HandCards)
		assert.Equal(t, snapshot.LibraryCards, got.LibraryCards)
		assert.Equal(t, snapshot.BattlefieldCards, got.BattlefieldCards)
	})

	t.Run("Snapshots are keyed per room and player", func(t *testing.T) {
		_, err := repo.GetByRoomAndPlayer(ctx, "room1", "bob")
		require.ErrorIs(t, err, ErrSnapshotNotFound)

		_, err = repo.GetByRoomAndPlayer(ctx, "room2", "alice")
		require.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("DeleteByRoom removes every member's snapshot", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "room3", "alice", snapshot))
		require.NoError(t, repo.Save(ctx, "room3", "bob", snapshot))

		err := repo.DeleteByRoom(ctx, "room3", []string{"alice", "bob"})

		require.NoError(t, err)
		_, err = repo.GetByRoomAndPlayer(ctx, "room3", "alice")
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
		_, err = repo.GetByRoomAndPlayer(ctx, "room3", "bob")
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("DeleteByRoom with no members is a no-op", func(t *testing.T) {
		err := repo.DeleteByRoom(ctx, "room4", nil)

		require.NoError(t, err)
	})
}
