package websocket

import (
	"encoding/json"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound actions.
const (
	actionConnect              = "connect"
	actionRoomJoin             = "room:join"
	actionRoomSpectate         = "room:spectate"
	actionBoardDraw            = "board:draw"
	actionBoardPlay            = "board:play"
	actionBoardPlayFromLibrary = "board:playFromLibrary"
	actionBoardTap             = "board:tap"
	actionBoardGroupTap        = "board:groupTap"
	actionBoardMove            = "board:move"
	actionBoardReturn          = "board:return"
)

// Outbound room-scoped events. Every payload carries the acting playerId.
const (
	eventCardMoved        = "cardMoved"
	eventCardTapped       = "cardTapped"
	eventCardPlayed       = "cardPlayed"
	eventCardReturned     = "cardReturned"
	eventHandStateChanged = "handStateChanged"
	eventPlayerJoined     = "playerJoined"
	eventGameState        = "gameState"
	eventError            = "error"
)

type ConnectPayload struct {
	PlayerID string `json:"playerId"`
}

type JoinPayload struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
	DeckID   string `json:"deckId,omitempty"`
}

// SpectatePayload targets a player to view. An empty playerId switches the
// view back to the session's own board.
type SpectatePayload struct {
	PlayerID string `json:"playerId"`
}

type PlayPayload struct {
	CardID   string          `json:"cardId"`
	Position entity.Position `json:"position"`
}

type TapPayload struct {
	CardID string `json:"cardId"`
	Tapped bool   `json:"tapped"`
}

type GroupTapPayload struct {
	CardIDs []string `json:"cardIds"`
}

type MovePayload struct {
	CardID   string          `json:"cardId"`
	Position entity.Position `json:"position"`
}

type ReturnPayload struct {
	CardID string `json:"cardId"`
}

type CardMovedPayload struct {
	PlayerID string          `json:"playerId"`
	CardID   string          `json:"cardId"`
	Position entity.Position `json:"position"`
}

type CardTappedPayload struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
	Tapped   bool   `json:"tapped"`
}

type CardPlayedPayload struct {
	PlayerID string            `json:"playerId"`
	Card     entity.PlacedCard `json:"card"`
	Position entity.Position   `json:"position"`
}

type CardReturnedPayload struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
}

type HandStateChangedPayload struct {
	PlayerID     string                `json:"playerId"`
	HandCards    []entity.CardInstance `json:"handCards"`
	LibraryCards []entity.CardInstance `json:"libraryCards"`
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"playerId"`
}

type GameStatePayload struct {
	PlayerID         string              `json:"playerId"`
	BattlefieldCards []entity.PlacedCard `json:"battlefieldCards"`
}

type ErrorPayload struct {
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error"`
}
