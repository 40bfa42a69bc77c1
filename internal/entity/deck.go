package entity

// DeckEntry is one line of a deck list: a card definition and how many
// copies of it the deck runs.
type DeckEntry struct {
	Card     Card `json:"card"`
	Quantity int  `json:"quantity"`
}

type Deck struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Entries []DeckEntry `json:"entries"`
}

// Size is the total number of physical cards in the deck.
func (that *Deck) Size() int {
	total := 0
	for _, entry := range that.Entries {
		total += entry.Quantity
	}

	return total
}
