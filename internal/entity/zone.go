package entity

import "math/rand"

// Library is an ordered zone; index 0 is the top of the deck.
type Library struct {
	Cards []CardInstance `json:"cards"`
}

// DrawTop removes and returns the top card. Returns false when the library
// is empty; callers must check.
func (that *Library) DrawTop() (CardInstance, bool) {
	if len(that.Cards) == 0 {
		return CardInstance{}, false
	}

	card := that.Cards[0]
	that.Cards = that.Cards[1:]

	return card, true
}

// RemoveByID removes the card with the given instance identity regardless of
// its current index. Concurrent draws may have reordered the library, so
// position-based removal is never safe here.
func (that *Library) RemoveByID(instanceID string) (CardInstance, bool) {
	for i, card := range that.Cards {
		if card.InstanceID == instanceID {
			that.Cards = append(that.Cards[:i], that.Cards[i+1:]...)
			return card, true
		}
	}

	return CardInstance{}, false
}

// Shuffle reorders the library in place. It runs once per fresh deal and is
// never triggered automatically mid-game.
func (that *Library) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(that.Cards), func(i, j int) {
		that.Cards[i], that.Cards[j] = that.Cards[j], that.Cards[i]
	})
}

func (that *Library) Add(card CardInstance) {
	that.Cards = append(that.Cards, card)
}

func (that *Library) Size() int {
	return len(that.Cards)
}

// Hand is an unordered zone; only membership matters.
type Hand struct {
	Cards []CardInstance `json:"cards"`
}

func (that *Hand) Add(card CardInstance) {
	that.Cards = append(that.Cards, card)
}

func (that *Hand) RemoveByID(instanceID string) (CardInstance, bool) {
	for i, card := range that.Cards {
		if card.InstanceID == instanceID {
			that.Cards = append(that.Cards[:i], that.Cards[i+1:]...)
			return card, true
		}
	}

	return CardInstance{}, false
}

func (that *Hand) GetByID(instanceID string) (CardInstance, bool) {
	for _, card := range that.Cards {
		if card.InstanceID == instanceID {
			return card, true
		}
	}

	return CardInstance{}, false
}

func (that *Hand) Size() int {
	return len(that.Cards)
}

// Battlefield holds placed cards with position and tap state.
type Battlefield struct {
	Cards []PlacedCard `json:"cards"`
}

func (that *Battlefield) Place(card CardInstance, position Position, zIndex int) PlacedCard {
	placed := PlacedCard{
		CardInstance: card,
		Position:     position,
		ZIndex:       zIndex,
	}

	that.Cards = append(that.Cards, placed)

	return placed
}

func (that *Battlefield) RemoveByID(instanceID string) (PlacedCard, bool) {
	for i, card := range that.Cards {
		if card.InstanceID == instanceID {
			that.Cards = append(that.Cards[:i], that.Cards[i+1:]...)
			return card, true
		}
	}

	return PlacedCard{}, false
}

func (that *Battlefield) UpdatePosition(instanceID string, position Position, zIndex int) (PlacedCard, bool) {
	for i := range that.Cards {
		if that.Cards[i].InstanceID == instanceID {
			that.Cards[i].Position = position
			that.Cards[i].ZIndex = zIndex

			return that.Cards[i], true
		}
	}

	return PlacedCard{}, false
}

func (that *Battlefield) SetTapped(instanceID string, tapped bool) (PlacedCard, bool) {
	for i := range that.Cards {
		if that.Cards[i].InstanceID == instanceID {
			that.Cards[i].Tapped = tapped

			return that.Cards[i], true
		}
	}

	return PlacedCard{}, false
}

func (that *Battlefield) GetByID(instanceID string) (PlacedCard, bool) {
	for _, card := range that.Cards {
		if card.InstanceID == instanceID {
			return card, true
		}
	}

	return PlacedCard{}, false
}

func (that *Battlefield) Size() int {
	return len(that.Cards)
}
