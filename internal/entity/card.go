package entity

// Card is an immutable card definition. Several copies of the same named card
// may exist in one library; they share a Card but never an instance identity.
type Card struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url,omitempty"`
	ManaCost    string `json:"mana_cost,omitempty"`
	Power       string `json:"power,omitempty"`
	Toughness   string `json:"toughness,omitempty"`
	DoubleFaced bool   `json:"double_faced,omitempty"`
}

// CardInstance is one physical copy of a card. InstanceID is unique within a
// single player's board for the lifetime of a game session; it is re-minted
// when the card crosses certain zone boundaries (draw, return to hand).
type CardInstance struct {
	Card
	InstanceID string `json:"instance_id"`
}

// Position is a battlefield coordinate in board pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlacedCard is a card instance on the battlefield together with its
// presentation state. ZIndex is a per-player stacking tie-break only, it
// carries no meaning across clients.
type PlacedCard struct {
	CardInstance
	Position Position `json:"position"`
	Tapped   bool     `json:"tapped"`
	FaceDown bool     `json:"face_down"`
	ZIndex   int      `json:"z_index"`
}
