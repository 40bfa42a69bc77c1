package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/apperror"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/repository"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/tabletop"
)

type snapshotReader interface {
	GetByRoomAndPlayer(ctx context.Context, roomID, playerID string) (*repository.BoardSnapshot, error)
}

type deckReader interface {
	GetByID(ctx context.Context, id string) (*entity.Deck, error)
}

// Reconciler derives a consistent starting board state from a possibly
// partial persisted snapshot plus the player's deck list. It runs at most
// once per (room, player); repeated hydration returns the existing board.
type Reconciler struct {
	logger    *slog.Logger
	snapshots snapshotReader
	decks     deckReader
	rng       *rand.Rand
}

func NewReconciler(logger *slog.Logger, snapshots snapshotReader, decks deckReader, rng *rand.Rand) *Reconciler {
	return &Reconciler{
		logger:    logger.With("component", "reconciler"),
		snapshots: snapshots,
		decks:     decks,
		rng:       rng,
	}
}

// HydrationResult is the outcome of hydrating one board.
type HydrationResult struct {
	Board *entity.PlayerBoardState

	// EmitHandState is set when the hydration produced hand/library content
	// that other clients' mirrors have not seen yet (fresh deal or partial
	// rebuild of the session user's own board).
	EmitHandState bool
}

// Hydrate resolves the board for targetPlayerID inside the given room.
// deckID is the deck selected by the session user; it is only consulted when
// the target is the session user.
func (that *Reconciler) Hydrate(ctx context.Context, room *entity.GameRoomState, targetPlayerID, sessionUserID, deckID string) (*HydrationResult, error) {
	log := that.logger.With("roomID", room.ID, "playerID", targetPlayerID)

	if room.Hydrated(targetPlayerID) {
		board, ok := room.Board(targetPlayerID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperror.ErrPlayerNotFound, targetPlayerID)
		}

		return &HydrationResult{Board: board}, nil
	}

	board := room.EnsureBoard(targetPlayerID)
	isOwnBoard := targetPlayerID == sessionUserID

	snapshot, err := that.snapshots.GetByRoomAndPlayer(ctx, room.ID, targetPlayerID)
	if err != nil && !errors.Is(err, repository.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	result := &HydrationResult{Board: board}

	switch {
	case snapshot != nil && len(snapshot.HandCards) > 0 && len(snapshot.LibraryCards) == 0:
		// Partial state: keep the persisted hand, rebuild the library from
		// the deck minus the cards already in hand.
		that.restoreSnapshot(board, snapshot)
		that.rebuildLibrary(ctx, log, board, deckID, isOwnBoard)
		result.EmitHandState = isOwnBoard
		log.Info("hydrated from partial snapshot",
			"hand", board.Hand.Size(), "library", board.Library.Size())

	case snapshot != nil && !snapshot.IsEmpty():
		// Complete state: use it verbatim, skip deck loading entirely.
		// An empty hand with a persisted library or battlefield still counts
		// as complete; dealing a fresh library over it would duplicate every
		// card the snapshot already accounts for.
		that.restoreSnapshot(board, snapshot)
		log.Info("hydrated from complete snapshot",
			"hand", board.Hand.Size(), "library", board.Library.Size(), "battlefield", board.Battlefield.Size())

	default:
		if isOwnBoard && deckID != "" {
			// Fresh deal: full shuffled library, empty hand. An opening
			// hand is never auto-drawn.
			if that.dealFresh(ctx, log, board, deckID) {
				result.EmitHandState = true
			}
		}

		log.Info("hydrated without snapshot",
			"own_board", isOwnBoard, "library", board.Library.Size())
	}

	room.MarkHydrated(targetPlayerID)

	return result, nil
}

func (that *Reconciler) restoreSnapshot(board *entity.PlayerBoardState, snapshot *repository.BoardSnapshot) {
	board.Battlefield.Cards = append([]entity.PlacedCard(nil), snapshot.BattlefieldCards...)
	board.Hand.Cards = append([]entity.CardInstance(nil), snapshot.HandCards...)
	board.Library.Cards = append([]entity.CardInstance(nil), snapshot.LibraryCards...)

	for _, placed := range board.Battlefield.Cards {
		if placed.ZIndex >= board.NextZIndex {
			board.NextZIndex = placed.ZIndex + 1
		}
	}
}

// rebuildLibrary regenerates the library from the deck list and subtracts
// every card already present in the persisted hand, by name, one for one.
// Hand cards without a matching library entry are accepted: an undersized
// library beats a failed reconciliation.
func (that *Reconciler) rebuildLibrary(ctx context.Context, log *slog.Logger, board *entity.PlayerBoardState, deckID string, isOwnBoard bool) {
	if !isOwnBoard || deckID == "" {
		return
	}

	deck, err := that.decks.GetByID(ctx, deckID)
	if err != nil {
		log.Error("deck fetch failed, keeping empty library",
			"deckID", deckID, "error", fmt.Errorf("%w: %w", apperror.ErrDeckUnavailable, err))
		return
	}

	library := tabletop.BuildLibrary(deck.Entries, that.rng)

	conflicts := 0
	for _, handCard := range board.Hand.Cards {
		if !removeByName(&library, handCard.Name) {
			conflicts++
		}
	}

	if conflicts > 0 {
		log.Warn("hand cards missing from deck list, accepting undersized library",
			"conflicts", conflicts, "error", apperror.ErrReconciliationConflict)
	}

	board.Library = library
}

func (that *Reconciler) dealFresh(ctx context.Context, log *slog.Logger, board *entity.PlayerBoardState, deckID string) bool {
	deck, err := that.decks.GetByID(ctx, deckID)
	if err != nil {
		log.Error("deck fetch failed, showing empty board",
			"deckID", deckID, "error", fmt.Errorf("%w: %w", apperror.ErrDeckUnavailable, err))
		return false
	}

	board.Library = tabletop.BuildLibrary(deck.Entries, that.rng)
	board.Hand = entity.Hand{}

	return true
}

func removeByName(library *entity.Library, name string) bool {
	for i, card := range library.Cards {
		if card.Name == name {
			library.Cards = append(library.Cards[:i], library.Cards[i+1:]...)
			return true
		}
	}

	return false
}
