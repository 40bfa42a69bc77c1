package tabletop

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/apperror"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
)

// Board dimensions and card half-extents in board pixels. Positions refer to
// card centers, so clamping keeps the whole card on the battlefield.
const (
	BoardWidth  = 1920.0
	BoardHeight = 1080.0

	CardHalfWidth  = 75.0
	CardHalfHeight = 105.0
)

// MintInstanceID creates a fresh instance identity. Draw and Return re-mint
// because hand and battlefield identities are independent namespaces.
func MintInstanceID() string {
	return uuid.NewString()
}

// ClampPosition forces a battlefield position inside the board boundaries.
func ClampPosition(position entity.Position) entity.Position {
	position.X = clamp(position.X, CardHalfWidth, BoardWidth-CardHalfWidth)
	position.Y = clamp(position.Y, CardHalfHeight, BoardHeight-CardHalfHeight)

	return position
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

// Draw moves the top library card into the hand under a freshly minted
// hand-scoped identity.
func Draw(board *entity.PlayerBoardState) (entity.CardInstance, error) {
	card, ok := board.Library.DrawTop()
	if !ok {
		return entity.CardInstance{}, apperror.ErrEmptyLibrary
	}

	card.InstanceID = MintInstanceID()
	board.Hand.Add(card)

	return card, nil
}

// Play moves a card from the hand onto the battlefield, untapped, at the
// next z-index.
func Play(board *entity.PlayerBoardState, handInstanceID string, position entity.Position) (entity.PlacedCard, error) {
	card, ok := board.Hand.RemoveByID(handInstanceID)
	if !ok {
		return entity.PlacedCard{}, fmt.Errorf("%w: hand card %s", apperror.ErrZoneNotFound, handInstanceID)
	}

	return board.Battlefield.Place(card, ClampPosition(position), board.TakeZIndex()), nil
}

// PlayFromLibrary places a library card directly onto the battlefield,
// bypassing the hand. The card is matched by its library-scoped identity,
// never by position.
func PlayFromLibrary(board *entity.PlayerBoardState, libraryInstanceID string, position entity.Position) (entity.PlacedCard, error) {
	card, ok := board.Library.RemoveByID(libraryInstanceID)
	if !ok {
		return entity.PlacedCard{}, fmt.Errorf("%w: library card %s", apperror.ErrZoneNotFound, libraryInstanceID)
	}

	return board.Battlefield.Place(card, ClampPosition(position), board.TakeZIndex()), nil
}

// Tap sets the tap state of a battlefield card. Setting an already-tapped
// card to tapped is a state no-op but still succeeds, so the caller re-emits
// for sync.
func Tap(board *entity.PlayerBoardState, instanceID string, tapped bool) (entity.PlacedCard, error) {
	card, ok := board.Battlefield.SetTapped(instanceID, tapped)
	if !ok {
		return entity.PlacedCard{}, fmt.Errorf("%w: battlefield card %s", apperror.ErrZoneNotFound, instanceID)
	}

	return card, nil
}

// TapResult is the resolved tap state of one card after a tap action.
type TapResult struct {
	CardID string
	Tapped bool
}

// GroupTap resolves a multi-select tap. Tie-break rule: a selection with
// mixed tap states untaps everything; a uniform selection toggles.
// Instance IDs not present on the battlefield are skipped.
func GroupTap(board *entity.PlayerBoardState, instanceIDs []string) ([]TapResult, error) {
	found := make([]entity.PlacedCard, 0, len(instanceIDs))
	for _, id := range instanceIDs {
		if card, ok := board.Battlefield.GetByID(id); ok {
			found = append(found, card)
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no selected cards on battlefield", apperror.ErrZoneNotFound)
	}

	anyTapped, anyUntapped := false, false
	for _, card := range found {
		if card.Tapped {
			anyTapped = true
		} else {
			anyUntapped = true
		}
	}

	var target bool
	if anyTapped && anyUntapped {
		target = false
	} else {
		target = !found[0].Tapped
	}

	results := make([]TapResult, 0, len(found))
	for _, card := range found {
		board.Battlefield.SetTapped(card.InstanceID, target)
		results = append(results, TapResult{CardID: card.InstanceID, Tapped: target})
	}

	return results, nil
}

// Move repositions a battlefield card, clamped to the board, and bumps its
// z-index so it stacks on top. The card is resolved first so a failed move
// consumes no z-index.
func Move(board *entity.PlayerBoardState, instanceID string, position entity.Position) (entity.PlacedCard, error) {
	if _, ok := board.Battlefield.GetByID(instanceID); !ok {
		return entity.PlacedCard{}, fmt.Errorf("%w: battlefield card %s", apperror.ErrZoneNotFound, instanceID)
	}

	card, _ := board.Battlefield.UpdatePosition(instanceID, ClampPosition(position), board.TakeZIndex())

	return card, nil
}

// Return moves a battlefield card back to the hand under a re-minted
// hand-scoped identity. The battlefield identity it carried is retired.
func Return(board *entity.PlayerBoardState, instanceID string) (entity.CardInstance, error) {
	placed, ok := board.Battlefield.RemoveByID(instanceID)
	if !ok {
		return entity.CardInstance{}, fmt.Errorf("%w: battlefield card %s", apperror.ErrZoneNotFound, instanceID)
	}

	card := placed.CardInstance
	card.InstanceID = MintInstanceID()
	board.Hand.Add(card)

	return card, nil
}

// BuildLibrary mints one instance per physical copy in the deck list and
// shuffles the result once.
func BuildLibrary(entries []entity.DeckEntry, rng *rand.Rand) entity.Library {
	var library entity.Library
	for _, entry := range entries {
		for i := 0; i < entry.Quantity; i++ {
			library.Add(entity.CardInstance{
				Card:       entry.Card,
				InstanceID: MintInstanceID(),
			})
		}
	}

	library.Shuffle(rng)

	return library
}
